package kb

import (
	"bytes"
	"fmt"
	"os"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/signalsfoundry/efis-adapter/model"
	"gopkg.in/yaml.v3"
)

// CatalogFile is the on-disk category table.
//
//	categories:
//	  - id: NAV1
//	    name: Captain primary navigation
//	  - id: NAV2
//	    disabled: true
type CatalogFile struct {
	Categories []CategoryEntry `yaml:"categories" validate:"required,min=1,dive"`
}

// CategoryEntry is one configured category.
type CategoryEntry struct {
	ID          string `yaml:"id" validate:"required,max=64,categoryid"`
	Name        string `yaml:"name" validate:"max=128"`
	Description string `yaml:"description" validate:"max=512"`
	Disabled    bool   `yaml:"disabled"`
}

var categoryIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

var catalogValidate *validator.Validate

func init() {
	catalogValidate = validator.New()
	if err := catalogValidate.RegisterValidation("categoryid", func(fl validator.FieldLevel) bool {
		return categoryIDPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register categoryid validator: %v", err))
	}
}

// ParseCatalog decodes and validates a YAML catalog. Unknown keys are
// rejected.
func ParseCatalog(data []byte) ([]model.Category, error) {
	var f CatalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := catalogValidate.Struct(f); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}

	cats := make([]model.Category, 0, len(f.Categories))
	seen := make(map[string]struct{}, len(f.Categories))
	for _, e := range f.Categories {
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("validate catalog: duplicate category id %q", e.ID)
		}
		seen[e.ID] = struct{}{}
		cats = append(cats, model.Category{
			ID:          e.ID,
			Name:        e.Name,
			Description: e.Description,
			Valid:       !e.Disabled,
		})
	}
	return cats, nil
}

// LoadCatalogFile reads and parses the catalog at path.
func LoadCatalogFile(path string) ([]model.Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}
