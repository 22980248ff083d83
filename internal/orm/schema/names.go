package schema

// NameMap is the bidirectional mapping between internal field names and the
// names fields are serialized under. Hidden fields are absent from both sides.
// A NameMap is immutable once built.
type NameMap struct {
	toExposed  map[string]string
	toInternal map[string]string
	order      []string // internal names of exposed fields, declaration order
}

// NewNameMap derives the mapping from the resource's fields
func NewNameMap(resource *ResourceSchema) *NameMap {
	m := &NameMap{
		toExposed:  make(map[string]string, len(resource.Fields)),
		toInternal: make(map[string]string, len(resource.Fields)),
	}

	for _, field := range resource.OrderedFields() {
		public := field.PublicName()
		if public == "" {
			continue
		}
		m.toExposed[field.Name] = public
		m.toInternal[public] = field.Name
		m.order = append(m.order, field.Name)
	}

	return m
}

// Expose returns the exposed name of an internal field
func (m *NameMap) Expose(internal string) (string, bool) {
	name, ok := m.toExposed[internal]
	return name, ok
}

// Internal returns the internal name behind an exposed name
func (m *NameMap) Internal(exposed string) (string, bool) {
	name, ok := m.toInternal[exposed]
	return name, ok
}

// ExposedNames returns the exposed names in field declaration order
func (m *NameMap) ExposedNames() []string {
	names := make([]string, 0, len(m.order))
	for _, internal := range m.order {
		names = append(names, m.toExposed[internal])
	}
	return names
}

// ExposeRecord renames a record's keys to exposed names and drops hidden fields
func (m *NameMap) ExposeRecord(record map[string]interface{}) map[string]interface{} {
	if record == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m.toExposed))
	for internal, value := range record {
		if public, ok := m.toExposed[internal]; ok {
			out[public] = value
		}
	}
	return out
}

// ExposeRecords applies ExposeRecord to every record
func (m *NameMap) ExposeRecords(records []map[string]interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, len(records))
	for i, record := range records {
		out[i] = m.ExposeRecord(record)
	}
	return out
}

// InternalRecord renames exposed keys to internal names, dropping unknown keys
func (m *NameMap) InternalRecord(record map[string]interface{}) map[string]interface{} {
	if record == nil {
		return nil
	}
	out := make(map[string]interface{}, len(record))
	for public, value := range record {
		if internal, ok := m.toInternal[public]; ok {
			out[internal] = value
		}
	}
	return out
}
