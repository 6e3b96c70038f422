package config

const (
	defaultOutputFolder        = "~/trajstore/videos"
	defaultMaxFramesPerSegment = 1000
	defaultIndexCacheRows      = 1 << 20
	defaultNumEnvs             = 16
	defaultFrameSize           = 84
	defaultFPS                 = 20
	defaultCompression         = "lz4"
	defaultChannelLayout       = "hwc"
	defaultSliceOrder          = "chronological"
	defaultDecodeConcurrency   = 4
	defaultLogFormat           = "auto"
	defaultLogLevel            = "info"
	defaultMetricsListen       = "127.0.0.1:2112"
	defaultSimulationSteps     = 5000
	defaultDoneProbability     = 0.01
	defaultSeed                = 1
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Storage: Storage{
			OutputFolder:        defaultOutputFolder,
			MaxFramesPerSegment: defaultMaxFramesPerSegment,
			IndexCacheRows:      defaultIndexCacheRows,
		},
		Video: Video{
			NumEnvs:       defaultNumEnvs,
			FrameHeight:   defaultFrameSize,
			FrameWidth:    defaultFrameSize,
			FPS:           defaultFPS,
			Compression:   defaultCompression,
			ChannelLayout: defaultChannelLayout,
		},
		Retrieval: Retrieval{
			SliceOrder:        defaultSliceOrder,
			DecodeConcurrency: defaultDecodeConcurrency,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Metrics: Metrics{
			Listen: defaultMetricsListen,
		},
		Simulation: Simulation{
			Steps:           defaultSimulationSteps,
			DoneProbability: defaultDoneProbability,
			Seed:            defaultSeed,
		},
	}
}
