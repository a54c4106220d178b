package barber

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/lewtec/barber/internal/collection"
	"github.com/lewtec/barber/internal/upload"
	"gopkg.in/yaml.v3"
)

const DefaultAddr = ":8000"

type Config struct {
	Sources     Sources     `yaml:"sources"`
	Destination Destination `yaml:"destination"`
	// Workers bounds concurrent digests and thumbnail renders, 0 means one per CPU
	Workers int `yaml:"workers"`
	Server  struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
}

type Destination struct {
	HostAlias string `yaml:"host_alias"`
	Root      string `yaml:"root"`
	Sizes     []int  `yaml:"sizes"`
	OnError   string `yaml:"on_error"`
}

// Sources is the sources mapping in file order
type Sources []collection.Source

func (s *Sources) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: sources must be a mapping of name to pattern", node.Line)
	}
	seen := map[string]int{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name, pattern string
		if err := node.Content[i].Decode(&name); err != nil {
			return err
		}
		if err := node.Content[i+1].Decode(&pattern); err != nil {
			return err
		}
		if pos, ok := seen[name]; ok {
			(*s)[pos].Pattern = pattern
			continue
		}
		seen[name] = len(*s)
		*s = append(*s, collection.Source{Name: name, Pattern: pattern})
	}
	return nil
}

func (s Sources) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, src := range s {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: src.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: src.Pattern},
		)
	}
	return node, nil
}

// DefaultConfigPath is ~/.config/barber/config.yaml
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "barber", "config.yaml")
}

// LoadDotEnv loads .env from the working directory when there is one
func LoadDotEnv() error {
	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func LoadConfig(filename string) (*Config, error) {
	var ret Config
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("while parsing config '%s': %w", filename, err)
	}
	if len(ret.Sources) == 0 {
		return nil, fmt.Errorf("config '%s' has no sources", filename)
	}
	for _, size := range ret.Destination.Sizes {
		if size <= 0 {
			return nil, fmt.Errorf("destination size %d is not positive", size)
		}
	}
	if _, err := upload.ParsePolicy(ret.Destination.OnError); err != nil {
		return nil, err
	}
	if ret.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", ret.Workers)
	}
	if ret.Server.Addr == "" {
		ret.Server.Addr = DefaultAddr
	}
	return &ret, nil
}

// Policy is the parsed on_error setting
func (d Destination) Policy() upload.Policy {
	p, _ := upload.ParsePolicy(d.OnError)
	return p
}

// CheckUpload tells whether the destination is complete enough to upload
func (d Destination) CheckUpload() error {
	if d.HostAlias == "" {
		return fmt.Errorf("destination.host_alias is not set")
	}
	if d.Root == "" {
		return fmt.Errorf("destination.root is not set")
	}
	if len(d.Sizes) == 0 {
		return fmt.Errorf("destination.sizes is empty")
	}
	return nil
}

// SampleConfig is the configuration written by init
func SampleConfig() *Config {
	cfg := &Config{
		Sources: Sources{
			{Name: "trips", Pattern: "~/photos/*"},
		},
		Destination: Destination{
			HostAlias: "myminio",
			Root:      "images",
			Sizes:     []int{800, 1600},
			OnError:   upload.SkipImage.String(),
		},
	}
	cfg.Server.Addr = DefaultAddr
	return cfg
}

// WriteConfig stores cfg at filename, refusing to replace a file unless force is set
func WriteConfig(filename string, cfg *Config, force bool) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(filename, flags, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}
