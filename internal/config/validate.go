package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateRun(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTools() error {
	if strings.TrimSpace(c.Tools.Git) == "" {
		return errors.New("tools.git must be set")
	}
	if strings.TrimSpace(c.Tools.Sudo) == "" {
		return errors.New("tools.sudo must be set")
	}
	if strings.TrimSpace(c.Tools.Setfacl) == "" {
		return errors.New("tools.setfacl must be set")
	}
	return nil
}

func (c *Config) validateRun() error {
	if strings.TrimSpace(c.Run.Executable) == "" {
		return errors.New("run.executable must be set")
	}
	if strings.ContainsRune(c.Run.Executable, '/') {
		return fmt.Errorf("run.executable must be a bare file name, got %q", c.Run.Executable)
	}
	if _, err := c.UmaskValue(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// UmaskValue parses run.umask as an octal mode.
func (c *Config) UmaskValue() (int, error) {
	raw := strings.TrimSpace(c.Run.Umask)
	if raw == "" {
		raw = defaultUmask
	}
	value, err := strconv.ParseInt(strings.TrimPrefix(raw, "0o"), 8, 32)
	if err != nil || value < 0 || value > 0o777 {
		return 0, fmt.Errorf("run.umask must be an octal mode like 077, got %q", c.Run.Umask)
	}
	return int(value), nil
}
