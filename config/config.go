package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// Port the HTTP API listens on
	Port string `env:"PORT" envDefault:"5250"`

	// Path to the sqlite ledger database
	DatabasePath string `env:"DATABASE_PATH" envDefault:"database/dxbdata.db"`

	// Scanner configuration
	Scanner struct {
		// Minutes between scheduled alert scan passes
		IntervalMinutes int `env:"SCAN_INTERVAL_MINUTES" envDefault:"5"`
	}

	// Analytics configuration
	Analytics struct {
		// Maximum days between buy and sell for a resale to count as a flip
		FlipMaxHoldDays int `env:"FLIP_MAX_HOLD_DAYS" envDefault:"1095"`

		// Minimum sales a unit needs before its resales are considered
		FlipMinUnitSales int `env:"FLIP_MIN_UNIT_SALES" envDefault:"2"`

		// Minimum flips before an area or building appears in flip stats
		MinFlipsForStats int `env:"MIN_FLIPS_FOR_STATS" envDefault:"3"`

		// Sales per window when comparing launch and current pricing
		LaunchWindow int `env:"LAUNCH_WINDOW" envDefault:"5"`

		// Minimum samples on both sides of the yield join
		YieldMinSamples int `env:"YIELD_MIN_SAMPLES" envDefault:"5"`

		// Minimum prior-window contracts before a vacancy signal is computed
		VacancyMinContracts int `env:"VACANCY_MIN_CONTRACTS" envDefault:"5"`

		// Minimum off-plan sales before a project appears in the tracker
		OffPlanMinUnits int `env:"OFFPLAN_MIN_UNITS" envDefault:"5"`

		// Years without a ready sale before an off-plan project counts as delayed
		OffPlanDelayedYears int `env:"OFFPLAN_DELAYED_YEARS" envDefault:"4"`
	}

	// BatchProcessing configuration
	BatchProcessing struct {
		// Maximum number of transactions to accumulate before processing
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"100"`

		// Buffered batches the ingest queue holds before rejecting pushes
		QueueSize int `env:"BATCH_QUEUE_SIZE" envDefault:"50"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
