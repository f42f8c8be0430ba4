// Package reference exposes the clinical reference content (differentials,
// examination guides, mnemonics, lab values) as read-only keyed tables. The
// quiz core has no dependency on any of this; it is lookup data for the UI.
package reference

import "sort"

// Entry is one reference item.
type Entry struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Table is an immutable keyed lookup table.
type Table struct {
	name    string
	entries map[string]Entry
}

func NewTable(name string, entries []Entry) *Table {
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		m[e.Key] = e
	}
	return &Table{name: name, entries: m}
}

func (t *Table) Name() string { return t.name }

func (t *Table) Lookup(key string) (Entry, bool) {
	e, ok := t.entries[key]
	return e, ok
}

// Keys returns all entry keys in sorted order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Library is the set of reference tables served by the API.
type Library struct {
	tables map[string]*Table
}

func NewLibrary(tables ...*Table) *Library {
	m := make(map[string]*Table, len(tables))
	for _, t := range tables {
		m[t.name] = t
	}
	return &Library{tables: m}
}

func (l *Library) Table(name string) (*Table, bool) {
	t, ok := l.tables[name]
	return t, ok
}

// Names lists the available tables in sorted order.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.tables))
	for name := range l.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtin returns the reference content shipped with the service. Kept
// deliberately small; real deployments load content from their own data
// files.
func Builtin() *Library {
	return NewLibrary(
		NewTable("differentials", []Entry{
			{Key: "chest-pain", Title: "Chest pain", Body: "ACS, PE, aortic dissection, pericarditis, GORD, MSK pain, pneumothorax."},
			{Key: "acute-abdomen", Title: "Acute abdomen", Body: "Appendicitis, cholecystitis, pancreatitis, perforated viscus, AAA, ectopic pregnancy."},
			{Key: "headache", Title: "Headache", Body: "Migraine, tension, cluster, SAH, GCA, meningitis, raised ICP."},
		}),
		NewTable("mnemonics", []Entry{
			{Key: "mudpiles", Title: "MUDPILES", Body: "Raised anion gap acidosis: Methanol, Uraemia, DKA, Paraldehyde, Iron/Isoniazid, Lactate, Ethylene glycol, Salicylates."},
			{Key: "socrates", Title: "SOCRATES", Body: "Pain history: Site, Onset, Character, Radiation, Associations, Time course, Exacerbating/relieving, Severity."},
		}),
		NewTable("lab-values", []Entry{
			{Key: "sodium", Title: "Sodium", Body: "135-145 mmol/L"},
			{Key: "potassium", Title: "Potassium", Body: "3.5-5.3 mmol/L"},
			{Key: "crp", Title: "CRP", Body: "<5 mg/L"},
		}),
	)
}
