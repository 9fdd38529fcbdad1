package fields

import (
	"fmt"
	"io/ioutil"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Field describes one demographic/clinical column of the golden record.
type Field struct {
	Name  string `yaml:"name" json:"name"`
	Label string `yaml:"label" json:"label"`
}

// Catalog is the fixed set of merged fields a golden record carries. The
// merge oracle's proposal must cover every field here, and steward edits
// may only touch fields listed here.
type Catalog struct {
	Fields []Field `yaml:"fields" json:"fields"`

	names map[string]struct{}
}

func Load(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := ioutil.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Fields) == 0 {
		return Catalog{}, fmt.Errorf("field catalog empty")
	}
	cat.index()
	return cat, nil
}

func DefaultCatalog() Catalog {
	cat := Catalog{Fields: []Field{
		{Name: "medical_record_num", Label: "Medical Record Number"},
		{Name: "patient_name", Label: "Patient Name"},
		{Name: "date_of_birth", Label: "Date of Birth"},
		{Name: "medicare_number", Label: "Medicare Number"},
		{Name: "phone", Label: "Phone"},
		{Name: "email", Label: "Email"},
		{Name: "address", Label: "Address"},
		{Name: "suburb", Label: "Suburb"},
		{Name: "state", Label: "State"},
		{Name: "postcode", Label: "Postcode"},
		{Name: "private_health_fund", Label: "Private Health Fund"},
		{Name: "membership_number", Label: "Membership Number"},
		{Name: "emergency_contact", Label: "Emergency Contact"},
		{Name: "gp_name", Label: "GP Name"},
		{Name: "blood_type", Label: "Blood Type"},
		{Name: "gender", Label: "Gender"},
	}}
	cat.index()
	return cat
}

func (c *Catalog) index() {
	c.names = make(map[string]struct{}, len(c.Fields))
	for _, f := range c.Fields {
		c.names[f.Name] = struct{}{}
	}
}

func (c Catalog) Contains(name string) bool {
	_, ok := c.names[name]
	return ok
}

// Missing reports catalog fields absent from the given field set. Present
// with a null value counts as present.
func (c Catalog) Missing(fieldSet map[string]*string) []string {
	var missing []string
	for _, f := range c.Fields {
		if _, ok := fieldSet[f.Name]; !ok {
			missing = append(missing, f.Name)
		}
	}
	return missing
}
