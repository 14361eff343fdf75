package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks field ranges and the settings that depend on each other.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed %q check", fe.Namespace(), fe.Tag())
		}
		return err
	}

	validators := []func() error{
		c.validateProvider,
		c.validateDurations,
		c.validateCounts,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateProvider() error {
	switch c.Provider.Name {
	case "youtube":
		if c.YouTube.APIKey == "" {
			return errors.New("YOUTUBE_API_KEY is required when provider is youtube")
		}
	case "spotify":
		if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
			return errors.New("SPOTIFY_ID and SPOTIFY_SECRET are required when provider is spotify")
		}
	}
	return nil
}

func (c *Config) validateDurations() error {
	if c.Classifier.MaxDuration > 0 && c.Classifier.MaxDuration < c.Classifier.MinDuration {
		return fmt.Errorf("classifier.max_duration (%d) is below classifier.min_duration (%d)",
			c.Classifier.MaxDuration, c.Classifier.MinDuration)
	}
	return nil
}

func (c *Config) validateCounts() error {
	if c.Recommend.MaxCount < c.Recommend.DefaultCount {
		return fmt.Errorf("recommend.max_count (%d) is below recommend.default_count (%d)",
			c.Recommend.MaxCount, c.Recommend.DefaultCount)
	}
	return nil
}
