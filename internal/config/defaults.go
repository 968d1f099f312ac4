package config

const (
	defaultDataDir              = "~/.local/share/logowatch/data"
	defaultReportDir            = "~/.local/share/logowatch/reports"
	defaultLogDir               = "~/.local/share/logowatch/logs"
	defaultBind                 = "127.0.0.1:7823"
	defaultAuthURL              = "https://id.twitch.tv/oauth2/token"
	defaultAPIURL               = "https://api.twitch.tv/helix"
	defaultRequestTimeout       = 10
	defaultThreshold            = 0.6
	defaultScaleMin             = 0.5
	defaultScaleMax             = 1.5
	defaultScaleSteps           = 20
	defaultCheckIntervalHours   = 1
	defaultFrameConcurrency     = 4
	defaultFrameTimeout         = 10
	defaultRetentionDays        = 30
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			ReportDir: defaultReportDir,
			LogDir:    defaultLogDir,
			Bind:      defaultBind,
		},
		Twitch: Twitch{
			AuthURL:        defaultAuthURL,
			APIURL:         defaultAPIURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Detection: Detection{
			Threshold:   defaultThreshold,
			ScaleMin:    defaultScaleMin,
			ScaleMax:    defaultScaleMax,
			ScaleSteps:  defaultScaleSteps,
			Screenshots: true,
		},
		Monitor: Monitor{
			CheckIntervalHours: defaultCheckIntervalHours,
			FrameConcurrency:   defaultFrameConcurrency,
			FrameTimeout:       defaultFrameTimeout,
		},
		Retention: Retention{
			Days: defaultRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Checks:         true,
			Detections:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
