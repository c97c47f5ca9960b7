package model

// Field identifies one of the five extraction targets.
type Field string

const (
	FieldName     Field = "company_name"
	FieldLocation Field = "company_location"
	FieldProducts Field = "products_and_services"
	FieldOverview Field = "company_overview"
	FieldClients  Field = "target_clients"
)

// Fields lists the extraction targets in canonical order.
var Fields = []Field{FieldName, FieldLocation, FieldProducts, FieldOverview, FieldClients}

// DisplayName returns the human-readable form used in search queries.
func (f Field) DisplayName() string {
	switch f {
	case FieldName:
		return "company name"
	case FieldLocation:
		return "location"
	case FieldProducts:
		return "products and services"
	case FieldOverview:
		return "company overview"
	case FieldClients:
		return "target clients"
	}
	return string(f)
}

// FieldValue is a single extracted datum. A FieldValue is never mutated in
// place; a merge that wins replaces the whole value.
type FieldValue struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
	Evidence   string  `json:"evidence,omitempty"`
}

// CompanyInfo holds the current best FieldValue per field. A slot is nil
// until a value with confidence > 0 has been merged into it.
type CompanyInfo struct {
	Name     *FieldValue `json:"company_name,omitempty"`
	Location *FieldValue `json:"company_location,omitempty"`
	Products *FieldValue `json:"products_and_services,omitempty"`
	Overview *FieldValue `json:"company_overview,omitempty"`
	Clients  *FieldValue `json:"target_clients,omitempty"`
}

func (ci *CompanyInfo) slot(f Field) **FieldValue {
	switch f {
	case FieldName:
		return &ci.Name
	case FieldLocation:
		return &ci.Location
	case FieldProducts:
		return &ci.Products
	case FieldOverview:
		return &ci.Overview
	case FieldClients:
		return &ci.Clients
	}
	return nil
}

// Get returns the stored value for f, or nil if absent.
func (ci *CompanyInfo) Get(f Field) *FieldValue {
	s := ci.slot(f)
	if s == nil {
		return nil
	}
	return *s
}

// Merge applies the confidence-priority rule: a candidate replaces the stored
// value only when its confidence is strictly higher. Equal confidence keeps
// the existing value (first-found wins), and zero-confidence or empty
// candidates are discarded so a field is never fabricated. Returns true if
// the slot changed.
func (ci *CompanyInfo) Merge(f Field, fv FieldValue) bool {
	s := ci.slot(f)
	if s == nil {
		return false
	}
	if fv.Confidence <= 0 || fv.Value == "" {
		return false
	}
	if *s != nil && fv.Confidence <= (*s).Confidence {
		return false
	}
	v := fv
	*s = &v
	return true
}

// Missing returns the fields that are absent or below the given confidence
// threshold, in canonical order.
func (ci *CompanyInfo) Missing(threshold float64) []Field {
	var missing []Field
	for _, f := range Fields {
		fv := ci.Get(f)
		if fv == nil || fv.Confidence < threshold {
			missing = append(missing, f)
		}
	}
	return missing
}

// Complete reports whether every field is present with confidence at or
// above threshold.
func (ci *CompanyInfo) Complete(threshold float64) bool {
	return len(ci.Missing(threshold)) == 0
}

// Found returns the fields currently present, in canonical order.
func (ci *CompanyInfo) Found() []Field {
	var found []Field
	for _, f := range Fields {
		if ci.Get(f) != nil {
			found = append(found, f)
		}
	}
	return found
}

// AverageConfidence averages the confidence of present fields. Returns 0
// when no field has been found.
func (ci *CompanyInfo) AverageConfidence() float64 {
	var sum float64
	var n int
	for _, f := range Fields {
		if fv := ci.Get(f); fv != nil {
			sum += fv.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
