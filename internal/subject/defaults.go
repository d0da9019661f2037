package subject

// LifeOrientation is the compulsory subject that never counts toward the score.
const LifeOrientation = "Life Orientation"

// DefaultDefinitions is the NSC subject list used when a catalog snapshot
// does not ship its own taxonomy.
func DefaultDefinitions() []Definition {
	return []Definition{
		{Name: LifeOrientation, Aliases: []string{"LO", "Life Skills"}, NonContributing: true, Mandatory: true},
		{Name: "Mathematics", Aliases: []string{"Maths", "Math", "Pure Maths", "Pure Mathematics"}},
		{Name: "Mathematical Literacy", Aliases: []string{"Maths Lit", "Math Lit", "Maths Literacy"}},
		{Name: "Technical Mathematics", Aliases: []string{"Tech Maths", "Technical Maths"}},
		{Name: "Physical Sciences", Aliases: []string{"Physical Science", "Physics", "Phys Sci"}},
		{Name: "Life Sciences", Aliases: []string{"Life Science", "Biology"}},
		{Name: "English Home Language", Aliases: []string{"English HL", "English"}},
		{Name: "English First Additional Language", Aliases: []string{"English FAL"}},
		{Name: "Afrikaans Home Language", Aliases: []string{"Afrikaans HL", "Afrikaans"}},
		{Name: "Afrikaans First Additional Language", Aliases: []string{"Afrikaans FAL"}},
		{Name: "isiZulu Home Language", Aliases: []string{"isiZulu HL", "Zulu"}},
		{Name: "isiXhosa Home Language", Aliases: []string{"isiXhosa HL", "Xhosa"}},
		{Name: "Accounting"},
		{Name: "Business Studies", Aliases: []string{"Business"}},
		{Name: "Economics"},
		{Name: "Geography", Aliases: []string{"Geo"}},
		{Name: "History"},
		{Name: "Information Technology", Aliases: []string{"IT"}},
		{Name: "Computer Applications Technology", Aliases: []string{"CAT"}},
		{Name: "Engineering Graphics and Design", Aliases: []string{"EGD"}},
		{Name: "Agricultural Sciences", Aliases: []string{"Agriculture"}},
		{Name: "Visual Arts"},
		{Name: "Dramatic Arts", Aliases: []string{"Drama"}},
		{Name: "Music"},
		{Name: "Tourism"},
		{Name: "Consumer Studies"},
		{Name: "Religion Studies"},
	}
}

// DefaultTaxonomy builds the taxonomy from DefaultDefinitions.
func DefaultTaxonomy() *Taxonomy {
	t, err := NewTaxonomy(DefaultDefinitions())
	if err != nil {
		panic("subject: default taxonomy is invalid: " + err.Error())
	}
	return t
}
