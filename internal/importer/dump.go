package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dshills/contentsearch/pkg/types"
)

// Dump is the on-disk import format. Every collection is optional.
type Dump struct {
	Articles  []*types.Article       `json:"articles" yaml:"articles"`
	Episodes  []*types.Episode       `json:"episodes" yaml:"episodes"`
	Seasons   []*types.Season        `json:"seasons" yaml:"seasons"`
	Playlists []*types.Playlist      `json:"playlists" yaml:"playlists"`
	Teams     []*types.TeamMember    `json:"teams" yaml:"teams"`
	FAQs      []*types.FAQ           `json:"faqs" yaml:"faqs"`
	Privacy   []*types.LegalDocument `json:"privacyContent" yaml:"privacyContent"`
	Terms     []*types.LegalDocument `json:"termsContent" yaml:"termsContent"`
	Users     []*types.User          `json:"users" yaml:"users"`
}

// Supported reports whether path has an importable extension
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

// ReadDump reads a YAML or JSON dump, chosen by file extension
func ReadDump(path string) (*Dump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDump(data, filepath.Ext(path))
}

// ParseDump decodes a dump; ext selects the format (".json" or YAML otherwise)
func ParseDump(data []byte, ext string) (*Dump, error) {
	var dump Dump
	if strings.EqualFold(ext, ".json") {
		if err := json.Unmarshal(data, &dump); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDump, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &dump); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDump, err)
		}
	}
	return &dump, nil
}

// Items returns every content item in the dump. Legal documents get their
// kind from the section they appear in; items without an ID get a stable
// name-based UUID so re-imports update rather than duplicate them.
func (d *Dump) Items() []types.ContentItem {
	var items []types.ContentItem
	for _, a := range d.Articles {
		if a != nil {
			ensureID(&a.ID, types.KindArticle, a.Title)
			items = append(items, a)
		}
	}
	for _, e := range d.Episodes {
		if e != nil {
			ensureID(&e.ID, types.KindEpisode, e.Title)
			items = append(items, e)
		}
	}
	for _, s := range d.Seasons {
		if s != nil {
			ensureID(&s.ID, types.KindSeason, s.Title)
			items = append(items, s)
		}
	}
	for _, p := range d.Playlists {
		if p != nil {
			ensureID(&p.ID, types.KindPlaylist, p.Name)
			items = append(items, p)
		}
	}
	for _, t := range d.Teams {
		if t != nil {
			ensureID(&t.ID, types.KindTeam, t.Name)
			items = append(items, t)
		}
	}
	for _, f := range d.FAQs {
		if f != nil {
			ensureID(&f.ID, types.KindFAQ, f.Question)
			items = append(items, f)
		}
	}
	for _, section := range []struct {
		kind types.ContentKind
		docs []*types.LegalDocument
	}{
		{types.KindPrivacy, d.Privacy},
		{types.KindTerms, d.Terms},
	} {
		kind := section.kind
		for _, doc := range section.docs {
			if doc != nil {
				doc.DocKind = kind
				ensureID(&doc.ID, kind, doc.Title+"\x00"+doc.Section)
				items = append(items, doc)
			}
		}
	}
	return items
}

// Len returns the number of items and users in the dump
func (d *Dump) Len() int {
	return len(d.Articles) + len(d.Episodes) + len(d.Seasons) + len(d.Playlists) +
		len(d.Teams) + len(d.FAQs) + len(d.Privacy) + len(d.Terms) + len(d.Users)
}

func ensureID(id *string, kind types.ContentKind, name string) {
	if strings.TrimSpace(*id) != "" {
		return
	}
	if strings.TrimSpace(name) == "" {
		// Left empty so validation reports the missing title
		return
	}
	*id = uuid.NewSHA1(uuid.NameSpaceURL, []byte(string(kind)+":"+name)).String()
}
