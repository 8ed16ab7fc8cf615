package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sanspareilsmyn/fishlens/internal/pipeline"
	"github.com/sanspareilsmyn/fishlens/internal/record"
)

var reports = map[string]func(*cobra.Command, *pipeline.Service, record.DashboardFilters) interface{}{
	"fish-count": func(cmd *cobra.Command, s *pipeline.Service, f record.DashboardFilters) interface{} {
		return s.FishCount(cmd.Context(), f)
	},
	"biomass": func(cmd *cobra.Command, s *pipeline.Service, f record.DashboardFilters) interface{} {
		return s.Biomass(cmd.Context(), f)
	},
	"kfactor": func(cmd *cobra.Command, s *pipeline.Service, f record.DashboardFilters) interface{} {
		return s.KFactorSeries(cmd.Context(), f)
	},
	"metrics": func(cmd *cobra.Command, s *pipeline.Service, f record.DashboardFilters) interface{} {
		return s.CurrentMetrics(cmd.Context(), f)
	},
	"weights": func(cmd *cobra.Command, s *pipeline.Service, f record.DashboardFilters) interface{} {
		return s.WeightSamples(cmd.Context(), f)
	},
	"weight-distribution": func(cmd *cobra.Command, s *pipeline.Service, f record.DashboardFilters) interface{} {
		return s.WeightDistribution(cmd.Context(), f)
	},
	"length-distribution": func(cmd *cobra.Command, s *pipeline.Service, f record.DashboardFilters) interface{} {
		return s.LengthDistribution(cmd.Context(), f)
	},
}

func reportNames() []string {
	names := make([]string, 0, len(reports))
	for name := range reports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func reportCmd(configFile *string) *cobra.Command {
	defaults := record.DefaultFilters(time.Now())
	filters := defaults

	cmd := &cobra.Command{
		Use:       "report <aggregate>",
		Short:     "Compute one aggregate and print it as JSON.",
		Long:      "Compute one aggregate and print it as JSON. Aggregates: " + strings.Join(reportNames(), ", ") + ".",
		Args:      cobra.ExactArgs(1),
		ValidArgs: reportNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			compute, ok := reports[args[0]]
			if !ok {
				return fmt.Errorf("unknown aggregate %q, expected one of %s", args[0], strings.Join(reportNames(), ", "))
			}
			if err := filters.Validate(); err != nil {
				return err
			}

			a, err := setup(*configFile)
			if err != nil {
				return err
			}
			defer a.close()

			svc, err := a.service()
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(compute(cmd, svc, filters), "", "  ")
			if err != nil {
				return fmt.Errorf("encode %s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&filters.StartDate, "start", defaults.StartDate, "First day of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&filters.EndDate, "end", defaults.EndDate, "Last day of the range, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&filters.Location, "location", defaults.Location, "Location tag")
	return cmd
}
