package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type EditionStatus string

const (
	EditionDraft     EditionStatus = "draft"
	EditionPublished EditionStatus = "published"
)

// Edition is one issue of the magazine. At most one edition is published.
type Edition struct {
	ID            string
	EditionNumber int
	Status        EditionStatus
	Content       EditionContent
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// Validate checks fields an editor controls.
func (e *Edition) Validate() error {
	if e.EditionNumber <= 0 {
		return Invalid("editionNumber", "must be greater than 0")
	}
	if e.Status != EditionDraft && e.Status != EditionPublished {
		return Invalid("status", "must be one of: draft published")
	}
	return e.Content.Validate()
}

type HeroStat struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type Hero struct {
	Headline     string     `json:"headline"`
	Subheadline  string     `json:"subheadline"`
	HeroImageURL string     `json:"heroImageUrl"`
	Stats        []HeroStat `json:"stats"`
}

type CarSpecs struct {
	TopSpeed     string `json:"topSpeed"`
	Acceleration string `json:"acceleration"`
	Handling     string `json:"handling"`
	Braking      string `json:"braking"`
}

type CarOfTheWeek struct {
	CarName     string   `json:"carName"`
	BuilderName string   `json:"builderName"`
	ImageURL    string   `json:"imageUrl"`
	PrizePool   string   `json:"prizePool"`
	EntryFee    string   `json:"entryFee"`
	TimeLeft    string   `json:"timeLeft"`
	Entries     int      `json:"entries"`
	Votes       int      `json:"votes"`
	VisionText  string   `json:"visionText,omitempty"`
	Specs       CarSpecs `json:"specs"`
}

type FeaturedBuild struct {
	Title    string `json:"title"`
	Owner    string `json:"owner"`
	Category string `json:"category"`
	ImageURL string `json:"imageUrl"`
	Votes    int    `json:"votes"`
	Edition  string `json:"edition"`
}

type Track struct {
	Name       string  `json:"name"`
	Location   string  `json:"location"`
	Rating     float64 `json:"rating"`
	Difficulty string  `json:"difficulty"`
	Laps       int     `json:"laps"`
}

type Article struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt"`
	Date     string `json:"date"`
	ReadTime string `json:"readTime"`
}

// EditionContent is the editorial document of an edition. Top-level sections
// without a typed field are kept verbatim in Extra.
type EditionContent struct {
	Hero           Hero            `json:"hero"`
	Ticker         []string        `json:"ticker"`
	CarOfTheWeek   CarOfTheWeek    `json:"carOfTheWeek"`
	FeaturedBuilds []FeaturedBuild `json:"featuredBuilds"`
	Tracks         []Track         `json:"tracks"`
	Articles       []Article       `json:"articles"`

	Extra map[string]json.RawMessage `json:"-"`
}

// knownSections lists the JSON keys owned by typed fields.
var knownSections = map[string]struct{}{
	"hero":           {},
	"ticker":         {},
	"carOfTheWeek":   {},
	"featuredBuilds": {},
	"tracks":         {},
	"articles":       {},
}

// reservedKeys are edition attributes that share the flattened wire object
// with content sections and never land in Extra.
var reservedKeys = map[string]struct{}{
	"id":            {},
	"editionNumber": {},
	"status":        {},
	"createdAt":     {},
	"publishedAt":   {},
}

// typedContent has the same fields as EditionContent without its methods.
type typedContent EditionContent

func (c EditionContent) MarshalJSON() ([]byte, error) {
	typed, err := json.Marshal(typedContent(c))
	if err != nil {
		return nil, err
	}
	if len(c.Extra) == 0 {
		return typed, nil
	}

	merged := make(map[string]json.RawMessage, len(knownSections)+len(c.Extra))
	for k, v := range c.Extra {
		merged[k] = v
	}
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(typed, &sections); err != nil {
		return nil, err
	}
	for k, v := range sections {
		merged[k] = v
	}
	return json.Marshal(merged)
}

func (c *EditionContent) UnmarshalJSON(data []byte) error {
	var typed typedContent
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	*c = EditionContent(typed)
	c.Extra = nil
	for k, v := range all {
		if _, ok := knownSections[k]; ok {
			continue
		}
		if _, ok := reservedKeys[k]; ok {
			continue
		}
		if c.Extra == nil {
			c.Extra = make(map[string]json.RawMessage)
		}
		c.Extra[k] = v
	}
	return nil
}

// maxTrackRating covers both the five-star and the ten-point editor scales.
const maxTrackRating = 10

// Validate checks the numeric ranges of typed sections.
func (c *EditionContent) Validate() error {
	for i, t := range c.Tracks {
		if t.Rating < 0 || t.Rating > maxTrackRating {
			return Invalid(fmt.Sprintf("tracks[%d].rating", i), "must be between 0 and 10")
		}
		if t.Laps < 0 {
			return Invalid(fmt.Sprintf("tracks[%d].laps", i), "must not be negative")
		}
	}
	return nil
}

// NewDraftContent returns the skeleton document used for fresh drafts.
func NewDraftContent(editionNumber int) EditionContent {
	return EditionContent{
		Hero: Hero{
			Headline: fmt.Sprintf("Edition #%d", editionNumber),
			Stats:    []HeroStat{},
		},
		Ticker:         []string{},
		FeaturedBuilds: []FeaturedBuild{},
		Tracks:         []Track{},
		Articles:       []Article{},
	}
}
