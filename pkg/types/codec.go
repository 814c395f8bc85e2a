package types

import (
	"encoding/json"
	"fmt"
)

// NewItem returns an empty item of the given kind
func NewItem(kind ContentKind) (ContentItem, error) {
	switch kind {
	case KindArticle:
		return &Article{}, nil
	case KindEpisode:
		return &Episode{}, nil
	case KindSeason:
		return &Season{}, nil
	case KindPlaylist:
		return &Playlist{}, nil
	case KindTeam:
		return &TeamMember{}, nil
	case KindFAQ:
		return &FAQ{}, nil
	case KindPrivacy, KindTerms:
		return &LegalDocument{DocKind: kind}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// DecodeItem decodes a JSON document into the struct for kind
func DecodeItem(kind ContentKind, data []byte) (ContentItem, error) {
	item, err := NewItem(kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, item); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	if legal, ok := item.(*LegalDocument); ok {
		legal.DocKind = kind
	}
	return item, nil
}

// UnmarshalJSON restores the concrete Data type from the Type tag
func (r *SemanticSearchResult) UnmarshalJSON(data []byte) error {
	var aux struct {
		Type                   ContentKind     `json:"type"`
		Data                   json.RawMessage `json:"data"`
		Score                  float64         `json:"score"`
		Relevance              Relevance       `json:"relevance"`
		HighlightedTitle       string          `json:"highlightedTitle"`
		HighlightedDescription string          `json:"highlightedDescription"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.Type = aux.Type
	r.Score = aux.Score
	r.Relevance = aux.Relevance
	r.HighlightedTitle = aux.HighlightedTitle
	r.HighlightedDescription = aux.HighlightedDescription
	r.Data = nil

	if len(aux.Data) == 0 || string(aux.Data) == "null" {
		return nil
	}
	item, err := DecodeItem(aux.Type, aux.Data)
	if err != nil {
		return err
	}
	r.Data = item
	return nil
}
