package main

import (
	"log/slog"
	"strings"
	"sync"

	"qproject/internal/config"
	"qproject/internal/history"
	"qproject/internal/logging"
	"qproject/internal/pipeline"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureLogDir(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// newLogger builds a logger honoring config with flag overrides. Extra
// outputs are appended to stdout; a daemonized run passes a log file and
// drops stdout because its stdio is bound to the null device.
func (c *commandContext) newLogger(jobID string, outputs ...string) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
		level = *c.logLevelFlag
	}
	format := cfg.Logging.Format
	if c.logFormatFlag != nil && strings.TrimSpace(*c.logFormatFlag) != "" {
		format = *c.logFormatFlag
	}
	return logging.New(logging.Options{
		Level:       level,
		Format:      format,
		OutputPaths: outputs,
		JobID:       jobID,
	})
}

// newPipeline wires a Pipeline with its run journal. The returned
// closer releases the journal and must be called once the command is
// done.
func (c *commandContext) newPipeline(logger *slog.Logger) (*pipeline.Pipeline, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}

	deps := pipeline.Deps{}
	closer := func() {}
	if strings.TrimSpace(cfg.Paths.HistoryDB) != "" {
		store, err := history.Open(cfg.Paths.HistoryDB)
		if err != nil {
			return nil, nil, err
		}
		deps.History = store
		closer = func() { _ = store.Close() }
	}
	return pipeline.New(logger, cfg, deps), closer, nil
}
