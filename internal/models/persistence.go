package models

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var SaveDir = ".saves"

// Review is the post-game record of a session.
type Review struct {
	ID        string  `yaml:"id" json:"id"`
	HumanRole Role    `yaml:"human_role" json:"human_role"`
	Winner    Winner  `yaml:"winner" json:"winner"`
	Days      int     `yaml:"days" json:"days"`
	Seats     []Seat  `yaml:"seats" json:"seats"`
	Entries   []Entry `yaml:"entries" json:"entries"`
}

func (r *Review) Save(name string) error {
	dir := filepath.Join(SaveDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "review.yaml"), data, 0644)
}

func LoadReview(name string) (*Review, error) {
	data, err := os.ReadFile(filepath.Join(SaveDir, name, "review.yaml"))
	if err != nil {
		return nil, err
	}
	var review Review
	if err := yaml.Unmarshal(data, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

func ListReviews() ([]string, error) {
	if _, err := os.Stat(SaveDir); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(SaveDir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			// review.yaml marks a finished game
			path := filepath.Join(SaveDir, entry.Name(), "review.yaml")
			if _, err := os.Stat(path); err == nil {
				names = append(names, entry.Name())
			}
		}
	}
	return names, nil
}
