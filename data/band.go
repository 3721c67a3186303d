package data

// Bands holds the lineup scraped from the festival website.
//
// The lineup is replaced wholesale on every refresh; a band's priority lives
// in its own table so it survives the band being dropped and re-added.
type Band struct {
	// like "Amorphis"
	Name string `gorm:"primaryKey"`

	// like "https://70000tons.com/wp-content/uploads/amorphis.jpg"
	ImageURL string

	// The band's page on the festival site.
	Link string

	Country    string
	Genre      string
	Noteworthy string
}

// BandPriority is the user's must-see/might-see choice for a band.
type BandPriority struct {
	BandName string `gorm:"primaryKey"`
	Priority Priority
}
