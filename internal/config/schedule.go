package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ScheduleEntry binds a canonical draw code to its daily draw time.
// Entries are ordered most-specific first; matching walks the slice in
// order, so PT must stay after PTV/PTN/PTM.
type ScheduleEntry struct {
	Code     string `mapstructure:"code"`
	DrawTime string `mapstructure:"drawTime"`
}

type ScheduleConfig struct {
	Entries []ScheduleEntry `mapstructure:"entries"`
}

func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		Entries: []ScheduleEntry{
			{Code: "CORUJINHA", DrawTime: "21:30:00"},
			{Code: "FEDERAL", DrawTime: "19:00:00"},
			{Code: "PPT", DrawTime: "09:20:00"},
			{Code: "PTV", DrawTime: "16:20:00"},
			{Code: "PTN", DrawTime: "18:20:00"},
			{Code: "PTM", DrawTime: "11:20:00"},
			{Code: "PT", DrawTime: "14:20:00"},
		},
	}
}

// ScheduleHolder exposes the current draw schedule, hot-reloaded when the
// backing file changes.
type ScheduleHolder struct {
	current atomic.Value // holds ScheduleConfig
}

// NewStaticScheduleHolder wraps a fixed schedule, without file watching.
func NewStaticScheduleHolder(cfg ScheduleConfig) *ScheduleHolder {
	holder := &ScheduleHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewScheduleHolder(cfg Config) (*ScheduleHolder, error) {
	v := viper.New()

	v.SetConfigName("schedule")
	v.SetConfigType("yml")
	if cfg.SchedulePath != "" {
		v.AddConfigPath(cfg.SchedulePath)
	}
	v.AddConfigPath("/etc/relatorio")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RELATORIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &ScheduleHolder{}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		holder.current.Store(DefaultScheduleConfig())
		return holder, nil
	}

	var sched ScheduleConfig
	if err := v.UnmarshalKey("schedule", &sched); err != nil {
		return nil, err
	}
	if err := validateSchedule(sched); err != nil {
		return nil, err
	}
	holder.current.Store(sched)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ScheduleConfig
		if err := v.UnmarshalKey("schedule", &updated); err != nil {
			log.Printf("[schedule-config] reload failed: %v", err)
			return
		}
		if err := validateSchedule(updated); err != nil {
			log.Printf("[schedule-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[schedule-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *ScheduleHolder) Get() ScheduleConfig {
	return h.current.Load().(ScheduleConfig)
}

func validateSchedule(cfg ScheduleConfig) error {
	if len(cfg.Entries) == 0 {
		return errors.New("schedule.entries cannot be empty")
	}
	for _, e := range cfg.Entries {
		if strings.TrimSpace(e.Code) == "" {
			return errors.New("schedule entry code cannot be empty")
		}
		if _, err := time.Parse("15:04:05", e.DrawTime); err != nil {
			return errors.New("invalid drawTime for " + e.Code)
		}
	}
	return nil
}
