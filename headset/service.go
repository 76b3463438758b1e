package headset

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/customheadset/driver/config"
	"github.com/customheadset/driver/utils"
)

// Service keeps a Device configured from the config directory: it applies the settings
// file on startup and reconfigures the device whenever the settings or the selected
// distortion profile change on disk.
type Service struct {
	dir     string
	device  *Device
	logger  golog.Logger
	watcher *config.Watcher
	workers utils.StoppableWorkers

	mu       sync.Mutex
	settings config.Settings
}

// NewService creates the config directory with defaults if needed, applies the current
// settings to the device, and starts watching for changes.
func NewService(dir string, device *Device, logger golog.Logger) (*Service, error) {
	if err := config.EnsureDefaultSettings(dir); err != nil {
		return nil, err
	}
	s := &Service{dir: dir, device: device, logger: logger}

	settings, err := config.ReadSettings(filepath.Join(dir, config.SettingsFileName), logger)
	if err != nil {
		logger.Debugw("starting from default settings", "error", err)
	}
	s.apply(settings)

	watcher, err := config.NewWatcher(dir, logger)
	if err != nil {
		return nil, errors.Wrap(err, "starting config watcher")
	}
	s.watcher = watcher
	s.workers = utils.NewStoppableWorkers(s.watchLoop)
	return s, nil
}

// CurrentSettings returns the most recently applied settings.
func (s *Service) CurrentSettings() config.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Service) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case settings := <-s.watcher.Updates():
			s.apply(settings)
		}
	}
}

// apply reconfigures the device for the given settings. Any failure keeps the previous
// profile active.
func (s *Service) apply(settings config.Settings) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	if !settings.Headset.Enable {
		s.logger.Info("headset disabled in settings; keeping current distortion profile")
		return
	}
	profile, err := config.ReadDistortionProfile(s.dir, settings.Headset.DistortionProfile, s.logger)
	if err != nil {
		s.logger.Warnw("distortion profile not loaded; previous profile remains active",
			"profile", settings.Headset.DistortionProfile, "error", err)
		return
	}
	cal, err := profile.Calibration()
	if err != nil {
		s.logger.Warnw("distortion profile rejected; previous profile remains active", "error", err)
		return
	}
	if err := s.device.Reconfigure(cal); err != nil {
		s.logger.Warnw("distortion profile rebuild failed; previous profile remains active",
			"profile", profile.Name, "error", err)
	}
}

// Close stops the watcher and its worker. The device is left to its owner to close.
func (s *Service) Close() {
	s.workers.Stop()
	s.watcher.Close()
}
