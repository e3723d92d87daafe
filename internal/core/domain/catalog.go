package domain

// Catalog is the in-memory {family -> {version -> record}} mapping.
// Families and the versions inside each family keep their insertion order;
// replacing an existing version keeps its original position.
type Catalog struct {
	families []string
	entries  map[string]*familyEntry
}

type familyEntry struct {
	versions []string
	records  map[string]*VersionRecord
}

func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]*familyEntry)}
}

// AddFamily registers an empty family if it is not already known.
func (c *Catalog) AddFamily(family string) {
	if _, ok := c.entries[family]; ok {
		return
	}
	c.families = append(c.families, family)
	c.entries[family] = &familyEntry{records: make(map[string]*VersionRecord)}
}

// Upsert stores rec under (rec.Name, rec.Version), last write wins.
func (c *Catalog) Upsert(rec *VersionRecord) {
	c.Put(rec.Name, rec.Version, rec)
}

// Put stores rec under an explicit (family, version) key. Metadata loaded
// from disk is keyed by the document structure, not by the record fields.
func (c *Catalog) Put(family, version string, rec *VersionRecord) {
	c.AddFamily(family)
	fe := c.entries[family]
	if _, exists := fe.records[version]; !exists {
		fe.versions = append(fe.versions, version)
	}
	fe.records[version] = rec
}

// Record returns the stored record without copying it.
func (c *Catalog) Record(family, version string) (*VersionRecord, bool) {
	fe, ok := c.entries[family]
	if !ok {
		return nil, false
	}
	rec, ok := fe.records[version]
	return rec, ok
}

func (c *Catalog) HasFamily(family string) bool {
	_, ok := c.entries[family]
	return ok
}

// Families returns family names in insertion order.
func (c *Catalog) Families() []string {
	return append([]string{}, c.families...)
}

// Versions returns the family's version identifiers in insertion order.
func (c *Catalog) Versions(family string) []string {
	fe, ok := c.entries[family]
	if !ok {
		return []string{}
	}
	return append([]string{}, fe.versions...)
}

// Records returns the family's records in insertion order.
func (c *Catalog) Records(family string) []*VersionRecord {
	fe, ok := c.entries[family]
	if !ok {
		return nil
	}
	out := make([]*VersionRecord, 0, len(fe.versions))
	for _, v := range fe.versions {
		out = append(out, fe.records[v])
	}
	return out
}

// Entries flattens the catalog in family-then-version insertion order.
func (c *Catalog) Entries() []*VersionRecord {
	var out []*VersionRecord
	for _, f := range c.families {
		out = append(out, c.Records(f)...)
	}
	return out
}

// Len counts records across all families.
func (c *Catalog) Len() int {
	n := 0
	for _, fe := range c.entries {
		n += len(fe.versions)
	}
	return n
}

// Clone deep-copies the catalog, records included.
func (c *Catalog) Clone() *Catalog {
	out := NewCatalog()
	for _, f := range c.families {
		out.AddFamily(f)
		fe := c.entries[f]
		for _, v := range fe.versions {
			out.Put(f, v, fe.records[v].Clone())
		}
	}
	return out
}
