package notify

import "errors"

var (
	ErrInvalidKafkaConfig = errors.New("invalid Kafka notifier configuration provided")
	ErrKafkaCloseFailed   = errors.New("failed to close Kafka writer")
)
