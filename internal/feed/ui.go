package feed

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/Borislavv/infinite-feed/pkg/config"
	"github.com/manifoldco/promptui"
	"github.com/rs/zerolog/log"
)

const cfgFilePattern = "feed.cfg*.yaml"

var ErrAborted = errors.New("aborted by user")

// configCandidates lists the yaml configs found in dir, sorted by name.
func configCandidates(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, cfgFilePattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ChooseConfig asks which yaml config to run the terminal view with and lets the user tune
// the seed size and polling before the feed starts.
func ChooseConfig(dir string) (*config.Feed, error) {
	files, err := configCandidates(dir)
	if err != nil {
		return nil, err
	}

	items := make([]string, 0, len(files)+2)
	for _, f := range files {
		items = append(items, filepath.Base(f))
	}
	items = append(items, "Built-in defaults", "Exit")

	prompt := promptui.Select{Label: "Select feed config", Items: items, Size: len(items)}
	idx, _, err := prompt.Run()
	if err != nil {
		log.Err(err).Msgf("[ui] config selection aborted: %v", err)
		return nil, ErrAborted
	}

	var cfg *config.Feed
	switch {
	case idx < len(files):
		if cfg, err = config.LoadConfig(files[idx]); err != nil {
			return nil, err
		}
	case idx == len(files):
		cfg = config.Default()
	default:
		return nil, ErrAborted
	}

	seedPrompt := promptui.Prompt{
		Label:   "Number of items to start with",
		Default: strconv.Itoa(cfg.Feed.Buffer.Seed),
		Validate: func(in string) error {
			n, err := strconv.Atoi(in)
			if err != nil || n < 0 || n > cfg.Feed.Buffer.MaxItems {
				return fmt.Errorf("enter a number between 0 and %d", cfg.Feed.Buffer.MaxItems)
			}
			return nil
		},
	}
	if in, err := seedPrompt.Run(); err == nil {
		cfg.Feed.Buffer.Seed, _ = strconv.Atoi(in)
	}

	pollingPrompt := promptui.Prompt{Label: "Poll for new items", IsConfirm: true}
	_, err = pollingPrompt.Run()
	cfg.Feed.Polling.Enabled = err == nil

	return cfg, nil
}
