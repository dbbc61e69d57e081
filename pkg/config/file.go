package config

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/servokit/servod/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		Driver:             &DriverConfig{Kind: DriverMemory},
		IdleTimeoutSeconds: ptr.To(0),
		AllowNonRootAccess: ptr.To(false),
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawFileConfig struct {
	Driver             *DriverConfig    `json:"driver,omitempty"`
	IdleTimeoutSeconds *int             `json:"idleTimeoutSeconds,omitempty"`
	AllowNonRootAccess *bool            `json:"allowNonRootAccess,omitempty"`
	Servos             []ServoConfig    `json:"servos,omitempty"`
	Schedules          []ScheduleConfig `json:"schedules,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	d := c.Driver()
	rawConfig := &RawFileConfig{
		Driver:             &d,
		IdleTimeoutSeconds: ptr.To(int(c.IdleTimeout() / time.Second)),
		AllowNonRootAccess: ptr.To(c.AllowNonRootAccess()),
		Servos:             c.Servos(),
		Schedules:          c.Schedules(),
	}

	return rawConfig, nil
}

func (f *File) Driver() DriverConfig {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	d := *defaultFileConfig.Driver
	if f.c.Driver != nil {
		d = *f.c.Driver
	}
	if d.Kind == "" {
		d.Kind = DriverMemory
	}
	if d.Protocol == "" {
		d.Protocol = ProtocolCompact
	}

	return d
}

// IdleTimeout is how long a servo may go without a command before the daemon
// disables it. Zero never disables.
func (f *File) IdleTimeout() time.Duration {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var seconds int

	if f.c.IdleTimeoutSeconds != nil {
		seconds = *f.c.IdleTimeoutSeconds
	} else {
		seconds = *defaultFileConfig.IdleTimeoutSeconds
	}

	if seconds < 0 {
		seconds = 0
	}

	return time.Duration(seconds) * time.Second
}

func (f *File) AllowNonRootAccess() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var allowNonRootAccess bool

	if f.c.AllowNonRootAccess != nil {
		allowNonRootAccess = *f.c.AllowNonRootAccess
	} else {
		allowNonRootAccess = *defaultFileConfig.AllowNonRootAccess
	}

	return allowNonRootAccess
}

// Servos returns a copy of the configured servos.
func (f *File) Servos() []ServoConfig {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]ServoConfig, len(f.c.Servos))
	copy(out, f.c.Servos)
	return out
}

func (f *File) Schedules() []ScheduleConfig {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]ScheduleConfig, len(f.c.Schedules))
	copy(out, f.c.Schedules)
	return out
}

func (f *File) SetIdleTimeout(d time.Duration) {
	if f.c == nil {
		panic("config is nil")
	}

	seconds := int(d / time.Second)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.c.IdleTimeoutSeconds = &seconds
}

func (f *File) SetAllowNonRootAccess(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.c.AllowNonRootAccess = &b
}

func (f *File) SetServoCalibration(name string, c CalibrationConfig) error {
	if f.c == nil {
		panic("config is nil")
	}

	if err := c.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.c.Servos {
		if f.c.Servos[i].Name == name {
			f.c.Servos[i].Calibration = &c
			return nil
		}
	}

	return pkgerrors.Errorf("servo %s is not configured", name)
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	if err := conf.Validate(); err != nil {
		return pkgerrors.Wrapf(err, "invalid config in file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	d := f.Driver()

	return logrus.Fields{
		"driver":             d.Kind,
		"device":             d.Device,
		"idleTimeout":        f.IdleTimeout(),
		"allowNonRootAccess": f.AllowNonRootAccess(),
		"servos":             len(f.Servos()),
		"schedules":          len(f.Schedules()),
	}
}
