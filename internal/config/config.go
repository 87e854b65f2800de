// Package config holds the options of the page layer and the command line
// tool, with defaults and YAML loading.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"htmlpatch/internal/html"
)

// Config holds configuration options for editing pages
type Config struct {
	// ContainerBaseClass marks editable regions; a suffix names them (sc-content-main)
	ContainerBaseClass string `yaml:"container_base_class"`

	// MenuBaseClass marks navigation menus
	MenuBaseClass string `yaml:"menu_base_class"`

	// ImageDir is the directory uploaded images are stored under
	ImageDir string `yaml:"image_dir"`

	// ImageExtensions lists the extensions an uploaded image may have
	ImageExtensions []string `yaml:"image_extensions"`

	// UploadDir is the directory uploaded files are stored under
	UploadDir string `yaml:"upload_dir"`

	// ForbiddenExtensions lists file extensions never treated as resources
	ForbiddenExtensions []string `yaml:"forbidden_extensions"`

	// MenuItemTemplate renders one menu item
	MenuItemTemplate string `yaml:"menu_item_template"`

	// ActiveMenuClass is set on the item linking to the current page
	ActiveMenuClass string `yaml:"active_menu_class"`

	// SanitizeContent runs container content through a UGC policy before saving
	SanitizeContent bool `yaml:"sanitize_content"`

	// ProtectTemplateTags hides <?php ?> and <% %> fragments while editing
	ProtectTemplateTags bool `yaml:"protect_template_tags"`

	// MaxDocumentSize rejects larger sources, in bytes; 0 = no limit
	MaxDocumentSize int `yaml:"max_document_size"`

	// Strict validates the element index after every edit
	Strict bool `yaml:"strict"`

	// Logger receives debug records from the page layer
	Logger *slog.Logger `yaml:"-"`
}

// Default returns the configuration used when nothing else is given
func Default() Config {
	return Config{
		ContainerBaseClass:  "sc-content",
		MenuBaseClass:       "sc-nav",
		ImageDir:            "images",
		ImageExtensions:     []string{"jpg", "jpeg", "png", "gif"},
		UploadDir:           "files",
		ForbiddenExtensions: []string{"php", "php5", "php4", "php3", "phtml", "phpt"},
		MenuItemTemplate:    html.DefaultMenuTemplate,
		ActiveMenuClass:     "active",
		SanitizeContent:     false,
		ProtectTemplateTags: true,
		MaxDocumentSize:     8 << 20, // 8MB
		Strict:              false,
		Logger:              slog.Default(),
	}
}

// LoadFile reads a YAML configuration file. Keys missing from the file keep
// their default values.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills in zero values that would leave the page layer unusable.
func (c *Config) ApplyDefaults() {
	d := Default()
	if c.ContainerBaseClass == "" {
		c.ContainerBaseClass = d.ContainerBaseClass
	}
	if c.MenuBaseClass == "" {
		c.MenuBaseClass = d.MenuBaseClass
	}
	if c.ImageDir == "" {
		c.ImageDir = d.ImageDir
	}
	if len(c.ImageExtensions) == 0 {
		c.ImageExtensions = d.ImageExtensions
	}
	if c.UploadDir == "" {
		c.UploadDir = d.UploadDir
	}
	if c.MenuItemTemplate == "" {
		c.MenuItemTemplate = d.MenuItemTemplate
	}
	if c.MaxDocumentSize < 0 {
		c.MaxDocumentSize = 0
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
}
