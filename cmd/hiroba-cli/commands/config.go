package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"hiroba-client/lib/configutil"
	"hiroba-client/lib/restyutil"
	"hiroba-client/lib/scrapers/hiroba/core"
	"hiroba-client/lib/scrapers/hiroba/session"

	"github.com/spf13/viper"
)

type Config struct {
	Email       string `json:"email" validate:"omitempty,email"`
	Password    string `json:"password" validate:"required_with=Email"`
	Token       string `json:"token" validate:"required_without=Email"`
	TaikoNumber string `json:"taiko_number" validate:"omitempty,numeric"`

	DumpDir           string  `json:"dump_dir"`
	RequestsPerSecond float64 `json:"requests_per_second" validate:"gte=0"`
	CloudflareBypass  bool    `json:"cloudflare_bypass"`
}

// loadConfig reads hiroba.json5 and applies environment and flag overrides on top.
func loadConfig() (Config, error) {
	cfg, err := configutil.ReadRecursively[Config]("hiroba.json5")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	if viper.IsSet("email") {
		cfg.Email = viper.GetString("email")
	}
	if viper.IsSet("password") {
		cfg.Password = viper.GetString("password")
	}
	if viper.IsSet("token") {
		cfg.Token = viper.GetString("token")
	}
	if viper.IsSet("taiko_number") {
		cfg.TaikoNumber = viper.GetString("taiko_number")
	}
	if viper.IsSet("dump_dir") {
		cfg.DumpDir = viper.GetString("dump_dir")
	}
	if viper.IsSet("cloudflare_bypass") {
		cfg.CloudflareBypass = viper.GetBool("cloudflare_bypass")
	}
	// the flag default applies when the config file is silent
	if viper.IsSet("requests_per_second") || cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = viper.GetFloat64("requests_per_second")
	}

	err = configutil.Validate(cfg)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func sessionOptions(cfg Config) (session.Options, error) {
	transportOpts := core.TransportOptions{
		RequestsPerSecond: cfg.RequestsPerSecond,
		CloudflareBypass:  cfg.CloudflareBypass,
	}
	if cfg.DumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(cfg.DumpDir)
		if err != nil {
			return session.Options{}, fmt.Errorf("dump dir: %w", err)
		}
		transportOpts.DumpOutput = output
	}
	return session.Options{Transport: core.NewRestyTransport(transportOpts)}, nil
}

// openSession resumes the configured token when it is still accepted and falls
// back to a credential login otherwise.
func openSession(ctx context.Context) (*session.Session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	opts, err := sessionOptions(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Token != "" {
		s := session.New(opts, cfg.Token)
		_, err := s.CheckCardLogined(ctx)
		if err != nil {
			return nil, err
		}
		if s.NamcoLogined() {
			current := s.CurrentLogin()
			if cfg.TaikoNumber != "" && (current == nil || current.TaikoNumber != cfg.TaikoNumber) {
				_, err = s.CardLogin(ctx, cfg.TaikoNumber)
				if err != nil {
					return nil, err
				}
			}
			return s, nil
		}
		if cfg.Email == "" {
			return nil, fmt.Errorf("token rejected and no credentials configured: %w", core.ErrNotLogined)
		}
		slog.Info("token rejected, logging in again", "email", cfg.Email)
	}

	return session.Login(ctx, opts, cfg.Email, cfg.Password, cfg.TaikoNumber)
}
