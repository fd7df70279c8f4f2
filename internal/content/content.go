// Package content loads and models the site content: projects and blog
// posts, plus the snapshot store every protocol serves from.
package content

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Project is one portfolio project page.
type Project struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
	Content     string `yaml:"content"`
	Thumbnail   string `yaml:"thumbnail"`

	// Priority orders projects (highest first). Non-positive priority
	// hides the project unless ShowHidden is set.
	Priority int `yaml:"priority"`
}

// Post is one blog post.
type Post struct {
	Title    string `yaml:"title"`
	URL      string `yaml:"url"`
	Date     string `yaml:"date"`
	Markdown string `yaml:"markdown"`
}

// Snapshot is one immutable generation of loaded content. It is replaced
// wholesale on reload, never mutated.
type Snapshot struct {
	Projects []Project
	Posts    []Post
}

// Options controls content loading.
type Options struct {
	// ShowHidden keeps projects with non-positive priority.
	ShowHidden bool
}

// Load reads all content under dir: projects/*.yaml and blog/*.yaml.
func Load(dir string, opts Options) (*Snapshot, error) {
	projects, err := loadProjects(filepath.Join(dir, "projects"), opts)
	if err != nil {
		return nil, err
	}
	posts, err := loadPosts(filepath.Join(dir, "blog"))
	if err != nil {
		return nil, err
	}
	return &Snapshot{Projects: projects, Posts: posts}, nil
}

func loadProjects(dir string, opts Options) ([]Project, error) {
	var projects []Project
	err := eachYAML(dir, func(path string, data []byte) error {
		var p Project
		if err := yaml.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("parse project %s: %w", path, err)
		}
		projects = append(projects, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].Priority > projects[j].Priority
	})
	if !opts.ShowHidden {
		visible := projects[:0]
		for _, p := range projects {
			if p.Priority > 0 {
				visible = append(visible, p)
			}
		}
		projects = visible
	}

	if err := verifyUnique(projects, "project url", func(p Project) string { return p.URL }); err != nil {
		return nil, err
	}
	positive := make([]Project, 0, len(projects))
	for _, p := range projects {
		if p.Priority > 0 {
			positive = append(positive, p)
		}
	}
	if err := verifyUnique(positive, "project priority", func(p Project) string {
		return fmt.Sprint(p.Priority)
	}); err != nil {
		return nil, err
	}
	return projects, nil
}

func loadPosts(dir string) ([]Post, error) {
	var posts []Post
	err := eachYAML(dir, func(path string, data []byte) error {
		var p Post
		if err := yaml.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("parse post %s: %w", path, err)
		}
		posts = append(posts, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(posts, func(i, j int) bool { return posts[i].Date < posts[j].Date })

	if err := verifyUnique(posts, "post url", func(p Post) string { return p.URL }); err != nil {
		return nil, err
	}
	if err := verifyUnique(posts, "post date", func(p Post) string { return p.Date }); err != nil {
		return nil, err
	}
	return posts, nil
}

// eachYAML calls fn for every .yaml file directly under dir. A missing
// directory yields no files.
func eachYAML(dir string, fn func(path string, data []byte) error) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read content dir %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := fn(path, data); err != nil {
			return err
		}
	}
	return nil
}

// verifyUnique rejects duplicate identifiers across items.
func verifyUnique[T any](items []T, what string, key func(T) string) error {
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		k := key(item)
		if seen[k] {
			return fmt.Errorf("duplicate %s: %q", what, k)
		}
		seen[k] = true
	}
	return nil
}
