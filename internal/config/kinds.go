package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Option value types recognized by the command builder.
const (
	OptionString   = "string"
	OptionBool     = "bool"
	OptionInt      = "int"
	OptionEnum     = "enum"
	OptionEnumList = "enum_list"
)

// OptionSpec declares one recognized parameter of a job kind.
type OptionSpec struct {
	Name   string   `yaml:"name" json:"name"`
	Flag   string   `yaml:"flag" json:"flag"`
	Type   string   `yaml:"type" json:"type"`
	Values []string `yaml:"values,omitempty" json:"values,omitempty"`
}

// KindSpec declares a job kind: the base command of the external
// collector and the schema of its recognized options. Kinds live in a
// config file so new collectors can be added without touching the
// controller.
type KindSpec struct {
	Name    string       `yaml:"name" json:"name"`
	Command []string     `yaml:"command" json:"command"`
	Options []OptionSpec `yaml:"options" json:"options"`
	Timeout string       `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// JobTimeout returns the per-kind timeout override, or def when unset.
func (k KindSpec) JobTimeout(def time.Duration) time.Duration {
	if k.Timeout == "" {
		return def
	}
	d, err := time.ParseDuration(k.Timeout)
	if err != nil {
		return def
	}
	return d
}

type kindsFile struct {
	Kinds []KindSpec `yaml:"kinds"`
}

// Kinds is the registry of job kind schemas. Safe for concurrent use;
// Watch replaces the set when the underlying file changes.
type Kinds struct {
	path string

	mu     sync.RWMutex
	byName map[string]KindSpec
	order  []string
}

// LoadKinds reads and validates the kind schema file.
func LoadKinds(path string) (*Kinds, error) {
	k := &Kinds{path: path}
	if err := k.reload(); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *Kinds) reload() error {
	data, err := os.ReadFile(k.path)
	if err != nil {
		return fmt.Errorf("reading kind config: %w", err)
	}

	var file kindsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing kind config: %w", err)
	}

	byName := make(map[string]KindSpec, len(file.Kinds))
	order := make([]string, 0, len(file.Kinds))
	for _, spec := range file.Kinds {
		if spec.Name == "" {
			return fmt.Errorf("kind config: kind without a name")
		}
		if len(spec.Command) == 0 {
			return fmt.Errorf("kind config: kind %q has no command", spec.Name)
		}
		if _, dup := byName[spec.Name]; dup {
			return fmt.Errorf("kind config: duplicate kind %q", spec.Name)
		}
		for _, opt := range spec.Options {
			switch opt.Type {
			case OptionString, OptionBool, OptionInt:
			case OptionEnum, OptionEnumList:
				if len(opt.Values) == 0 {
					return fmt.Errorf("kind config: option %s.%s has no values", spec.Name, opt.Name)
				}
			default:
				return fmt.Errorf("kind config: option %s.%s has unknown type %q", spec.Name, opt.Name, opt.Type)
			}
			if opt.Flag == "" {
				return fmt.Errorf("kind config: option %s.%s has no flag", spec.Name, opt.Name)
			}
		}
		byName[spec.Name] = spec
		order = append(order, spec.Name)
	}

	k.mu.Lock()
	k.byName = byName
	k.order = order
	k.mu.Unlock()
	return nil
}

// Get returns the schema of one kind.
func (k *Kinds) Get(name string) (KindSpec, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	spec, ok := k.byName[name]
	return spec, ok
}

// All returns all kinds in file order.
func (k *Kinds) All() []KindSpec {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]KindSpec, 0, len(k.order))
	for _, name := range k.order {
		out = append(out, k.byName[name])
	}
	return out
}

// Watch reloads the registry whenever the config file is rewritten.
// A broken file keeps the previous schemas in place. Blocks until the
// stop channel closes.
func (k *Kinds) Watch(stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors replace files, which drops a watch
	// on the file itself.
	if err := watcher.Add(filepath.Dir(k.path)); err != nil {
		return err
	}

	for {
		select {
		case <-stop:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(k.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := k.reload(); err != nil {
				log.Printf("kind config reload failed, keeping previous schemas: %v", err)
				continue
			}
			log.Printf("kind config reloaded: %d kinds", len(k.All()))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("kind config watcher error: %v", err)
		}
	}
}
