package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/fishlens/internal/record"
	"github.com/sanspareilsmyn/fishlens/internal/store/sqlstore"
)

// Growth model of the synthetic population.
const (
	startWeightG   = 70.0
	dailyGainG     = 0.4
	weightSpreadG  = 8.0
	meanK          = 1.0
	kSpread        = 0.05
	heightToLength = 0.3
	visibleShare   = 0.8
)

var errInvalidSeedFlags = errors.New("--days and --frames-per-day must be positive")

func seedCmd(configFile *string) *cobra.Command {
	var (
		days         int
		framesPerDay int
		seed         uint64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the SQL store with a synthetic tank.",
		Long: `seed writes frames captured through each day, one detection per visible fish
and its size estimate, for the given number of days ending today (UTC).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 || framesPerDay <= 0 {
				return fmt.Errorf("%w: days=%d frames-per-day=%d", errInvalidSeedFlags, days, framesPerDay)
			}

			a, err := setup(*configFile)
			if err != nil {
				return err
			}
			defer a.close()

			db, err := a.requireSQL()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := db.Migrate(ctx); err != nil {
				return err
			}

			if seed == 0 {
				seed = rand.Uint64()
			}
			s := newSeeder(db, seed, a.cfg.Tank.Census, framesPerDay, a.logger.Named("seeder"))
			end := time.Now().UTC().Truncate(24 * time.Hour)
			frames, measurements, err := s.run(ctx, end, days)
			if err != nil {
				return err
			}

			a.logger.Info("Seeding complete",
				zap.Int("frames", frames),
				zap.Int("measurements", measurements),
				zap.String("store", a.cfg.Store.Driver),
			)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "Number of days to generate, ending today")
	cmd.Flags().IntVar(&framesPerDay, "frames-per-day", 6, "Frames captured per day")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (0 picks one)")
	return cmd
}

type seeder struct {
	db           *sqlstore.Store
	rng          *rand.Rand
	seed         uint64
	census       int
	framesPerDay int
	logger       *zap.Logger
}

func newSeeder(db *sqlstore.Store, seed uint64, census, framesPerDay int, logger *zap.Logger) *seeder {
	return &seeder{
		db:           db,
		rng:          rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seed:         seed,
		census:       census,
		framesPerDay: framesPerDay,
		logger:       logger,
	}
}

// run seeds the days days ending on end. A cancelled context stops between
// days and is not an error.
func (s *seeder) run(ctx context.Context, end time.Time, days int) (frames, measurements int, err error) {
	s.logger.Sugar().Infow("Seeding synthetic tank",
		"days", days,
		"frames_per_day", s.framesPerDay,
		"fish", s.census,
		"seed", s.seed,
	)

	start := end.AddDate(0, 0, -(days - 1))
	for day := 0; day < days; day++ {
		if ctx.Err() != nil {
			s.logger.Info("Shutdown signal received, stopping seeder...")
			break
		}
		date := start.AddDate(0, 0, day)
		f, m, err := s.seedDay(ctx, date, day)
		if err != nil {
			return frames, measurements, fmt.Errorf("failed to seed %s: %w", date.Format(record.DateLayout), err)
		}
		frames += f
		measurements += m
	}
	return frames, measurements, nil
}

// seedDay writes one day of frames, spread over daylight hours.
func (s *seeder) seedDay(ctx context.Context, date time.Time, day int) (int, int, error) {
	var (
		frames       []record.Frame
		detections   []record.Detection
		measurements []record.Measurement
		ids          []string
	)

	meanWeight := startWeightG + dailyGainG*float64(day)
	for i := 0; i < s.framesPerDay; i++ {
		offset := time.Duration(6+s.rng.IntN(12))*time.Hour + time.Duration(s.rng.IntN(3600))*time.Second
		frame := record.Frame{ID: uuid.NewString(), Timestamp: date.Add(offset)}
		frames = append(frames, frame)

		for fish := 0; fish < s.census; fish++ {
			if s.rng.Float64() > visibleShare {
				continue
			}
			detection := record.Detection{ID: uuid.NewString(), FrameID: frame.ID}
			detections = append(detections, detection)
			measurements = append(measurements, s.sampleMeasurement(meanWeight, detection.ID))
			ids = append(ids, uuid.NewString())
		}
	}

	if err := s.db.InsertFrames(ctx, frames); err != nil {
		return 0, 0, err
	}
	if err := s.db.InsertDetections(ctx, detections); err != nil {
		return 0, 0, err
	}
	if err := s.db.InsertMeasurements(ctx, ids, measurements); err != nil {
		return 0, 0, err
	}
	s.logger.Debug("Seeded day",
		zap.String("date", date.Format(record.DateLayout)),
		zap.Int("frames", len(frames)),
		zap.Int("measurements", len(measurements)),
	)
	return len(frames), len(measurements), nil
}

// sampleMeasurement draws a weight and derives length from a K-factor near 1.
func (s *seeder) sampleMeasurement(meanWeight float64, detectionID string) record.Measurement {
	weight := math.Max(10, meanWeight+s.rng.NormFloat64()*weightSpreadG)
	k := meanK + s.rng.NormFloat64()*kSpread
	length := math.Cbrt(weight * 100 / k)
	return record.Measurement{
		WeightG:     math.Round(weight*10) / 10,
		LengthCM:    math.Round(length*10) / 10,
		HeightCM:    math.Round(length*heightToLength*10) / 10,
		DetectionID: detectionID,
	}
}
