package types

import (
	"fmt"
	"strings"
	"time"
)

// ContentKind identifies one of the content collections
type ContentKind string

const (
	KindArticle  ContentKind = "article"
	KindEpisode  ContentKind = "episode"
	KindSeason   ContentKind = "season"
	KindPlaylist ContentKind = "playlist"
	KindTeam     ContentKind = "team"
	KindFAQ      ContentKind = "faq"
	KindPrivacy  ContentKind = "privacy"
	KindTerms    ContentKind = "terms"
)

// AllKinds lists every content kind in collection registration order
var AllKinds = []ContentKind{
	KindArticle,
	KindEpisode,
	KindSeason,
	KindPlaylist,
	KindTeam,
	KindFAQ,
	KindPrivacy,
	KindTerms,
}

// LegalKinds are the kinds served by the dedicated privacy/terms sub-search
var LegalKinds = []ContentKind{KindPrivacy, KindTerms}

// Collection returns the store collection name for the kind
func (k ContentKind) Collection() string {
	switch k {
	case KindArticle:
		return "articles"
	case KindEpisode:
		return "episodes"
	case KindSeason:
		return "seasons"
	case KindPlaylist:
		return "playlists"
	case KindTeam:
		return "teams"
	case KindFAQ:
		return "faqs"
	case KindPrivacy:
		return "privacyContent"
	case KindTerms:
		return "termsContent"
	default:
		return ""
	}
}

// IsLegal reports whether the kind is privacy or terms content
func (k ContentKind) IsLegal() bool {
	return k == KindPrivacy || k == KindTerms
}

// Valid reports whether k is a known content kind
func (k ContentKind) Valid() bool {
	return k.Collection() != ""
}

// ParseContentKind parses a kind name, accepting collection names and plurals
func ParseContentKind(s string) (ContentKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range AllKinds {
		if s == string(k) || s == strings.ToLower(k.Collection()) || s == string(k)+"s" {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Projection is the normalized view of a content item consumed by scoring
type Projection struct {
	Kind          ContentKind
	ID            string
	Title         string
	Text          string // description-equivalent text
	Popularity    float64
	HasPopularity bool
	Timestamp     time.Time
}

// EmbeddableText returns the text embedded for similarity scoring
func (p Projection) EmbeddableText() string {
	return strings.TrimSpace(p.Title + " " + p.Text)
}

// ContentItem is implemented by every content kind
type ContentItem interface {
	Kind() ContentKind
	Projection() Projection
}

// Article is a published article
type Article struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Slug        string    `json:"slug,omitempty" yaml:"slug"`
	Excerpt     string    `json:"excerpt,omitempty" yaml:"excerpt"`
	Content     string    `json:"content,omitempty" yaml:"content"`
	Author      string    `json:"author,omitempty" yaml:"author"`
	Tags        []string  `json:"tags,omitempty" yaml:"tags"`
	Language    string    `json:"language,omitempty" yaml:"language"`
	Views       int64     `json:"views,omitempty" yaml:"views"`
	Likes       int64     `json:"likes,omitempty" yaml:"likes"`
	PublishedAt time.Time `json:"publishedAt,omitempty" yaml:"published_at"`
	CreatedAt   time.Time `json:"createdAt" yaml:"created_at"`
}

func (a *Article) Kind() ContentKind { return KindArticle }

func (a *Article) Projection() Projection {
	text := a.Excerpt
	if text == "" {
		text = a.Content
	}
	pop, ok := popularity(a.Views, a.Likes)
	return Projection{
		Kind:          KindArticle,
		ID:            a.ID,
		Title:         a.Title,
		Text:          text,
		Popularity:    pop,
		HasPopularity: ok,
		Timestamp:     firstTime(a.PublishedAt, a.CreatedAt),
	}
}

// Episode is a single podcast/video episode
type Episode struct {
	ID              string    `json:"id" yaml:"id"`
	Title           string    `json:"title" yaml:"title"`
	Description     string    `json:"description,omitempty" yaml:"description"`
	SeasonID        string    `json:"seasonId,omitempty" yaml:"season_id"`
	Number          int       `json:"number,omitempty" yaml:"number"`
	DurationSeconds int       `json:"durationSeconds,omitempty" yaml:"duration_seconds"`
	Language        string    `json:"language,omitempty" yaml:"language"`
	Views           int64     `json:"views,omitempty" yaml:"views"`
	Likes           int64     `json:"likes,omitempty" yaml:"likes"`
	PublishedAt     time.Time `json:"publishedAt,omitempty" yaml:"published_at"`
	CreatedAt       time.Time `json:"createdAt" yaml:"created_at"`
}

func (e *Episode) Kind() ContentKind { return KindEpisode }

func (e *Episode) Projection() Projection {
	pop, ok := popularity(e.Views, e.Likes)
	return Projection{
		Kind:          KindEpisode,
		ID:            e.ID,
		Title:         e.Title,
		Text:          e.Description,
		Popularity:    pop,
		HasPopularity: ok,
		Timestamp:     firstTime(e.PublishedAt, e.CreatedAt),
	}
}

// Season groups episodes
type Season struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description"`
	Number      int       `json:"number,omitempty" yaml:"number"`
	Language    string    `json:"language,omitempty" yaml:"language"`
	CreatedAt   time.Time `json:"createdAt" yaml:"created_at"`
}

func (s *Season) Kind() ContentKind { return KindSeason }

func (s *Season) Projection() Projection {
	return Projection{
		Kind:      KindSeason,
		ID:        s.ID,
		Title:     s.Title,
		Text:      s.Description,
		Timestamp: s.CreatedAt,
	}
}

// Playlist is a curated list of episodes
type Playlist struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description"`
	EpisodeIDs  []string  `json:"episodeIds,omitempty" yaml:"episode_ids"`
	Language    string    `json:"language,omitempty" yaml:"language"`
	Views       int64     `json:"views,omitempty" yaml:"views"`
	CreatedAt   time.Time `json:"createdAt" yaml:"created_at"`
}

func (p *Playlist) Kind() ContentKind { return KindPlaylist }

func (p *Playlist) Projection() Projection {
	pop, ok := popularity(p.Views, 0)
	return Projection{
		Kind:          KindPlaylist,
		ID:            p.ID,
		Title:         p.Name,
		Text:          p.Description,
		Popularity:    pop,
		HasPopularity: ok,
		Timestamp:     p.CreatedAt,
	}
}

// TeamMember is a member of the editorial team
type TeamMember struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Role      string    `json:"role,omitempty" yaml:"role"`
	Bio       string    `json:"bio,omitempty" yaml:"bio"`
	Language  string    `json:"language,omitempty" yaml:"language"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
}

func (t *TeamMember) Kind() ContentKind { return KindTeam }

func (t *TeamMember) Projection() Projection {
	text := t.Bio
	if t.Role != "" {
		text = strings.TrimSpace(t.Role + " " + t.Bio)
	}
	return Projection{
		Kind:      KindTeam,
		ID:        t.ID,
		Title:     t.Name,
		Text:      text,
		Timestamp: t.CreatedAt,
	}
}

// FAQ is a question/answer pair
type FAQ struct {
	ID        string    `json:"id" yaml:"id"`
	Question  string    `json:"question" yaml:"question"`
	Answer    string    `json:"answer,omitempty" yaml:"answer"`
	Category  string    `json:"category,omitempty" yaml:"category"`
	Language  string    `json:"language,omitempty" yaml:"language"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
}

func (f *FAQ) Kind() ContentKind { return KindFAQ }

func (f *FAQ) Projection() Projection {
	return Projection{
		Kind:      KindFAQ,
		ID:        f.ID,
		Title:     f.Question,
		Text:      f.Answer,
		Timestamp: f.CreatedAt,
	}
}

// LegalDocument is a section of the privacy policy or the terms of service.
// DocKind must be KindPrivacy or KindTerms.
type LegalDocument struct {
	DocKind   ContentKind `json:"kind" yaml:"-"`
	ID        string      `json:"id" yaml:"id"`
	Title     string      `json:"title" yaml:"title"`
	Section   string      `json:"section,omitempty" yaml:"section"`
	Content   string      `json:"content,omitempty" yaml:"content"`
	Language  string      `json:"language,omitempty" yaml:"language"`
	UpdatedAt time.Time   `json:"updatedAt,omitempty" yaml:"updated_at"`
	CreatedAt time.Time   `json:"createdAt" yaml:"created_at"`
}

func (l *LegalDocument) Kind() ContentKind { return l.DocKind }

func (l *LegalDocument) Projection() Projection {
	return Projection{
		Kind:      l.DocKind,
		ID:        l.ID,
		Title:     l.Title,
		Text:      l.Content,
		Timestamp: firstTime(l.UpdatedAt, l.CreatedAt),
	}
}

// ValidateItem checks the fields every stored item needs
func ValidateItem(item ContentItem) error {
	if item == nil {
		return ErrNilItem
	}
	if !item.Kind().Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, item.Kind())
	}
	p := item.Projection()
	if p.ID == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(p.Title) == "" {
		return ErrMissingTitle
	}
	return nil
}

// popularity picks views when present, otherwise likes
func popularity(views, likes int64) (float64, bool) {
	if views > 0 {
		return float64(views), true
	}
	if likes > 0 {
		return float64(likes), true
	}
	return 0, false
}

func firstTime(ts ...time.Time) time.Time {
	for _, t := range ts {
		if !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}
