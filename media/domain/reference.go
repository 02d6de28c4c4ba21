package domain

import (
	"context"
)

// Disposition is how a stored image reference should be served.
type Disposition int

const (
	// DispositionNone means there is no reference; nothing is rendered.
	DispositionNone Disposition = iota
	// DispositionPassthroughEphemeral is a client-side blob preview, used verbatim and never proxied.
	DispositionPassthroughEphemeral
	// DispositionPassthroughRemote is an object storage public URL, used verbatim.
	DispositionPassthroughRemote
	// DispositionNeedsResolution covers relative paths, legacy local URLs and anything unknown.
	DispositionNeedsResolution
)

func (d Disposition) String() string {
	switch d {
	case DispositionNone:
		return "NONE"
	case DispositionPassthroughEphemeral:
		return "PASSTHROUGH_EPHEMERAL"
	case DispositionPassthroughRemote:
		return "PASSTHROUGH_REMOTE"
	case DispositionNeedsResolution:
		return "NEEDS_RESOLUTION"
	default:
		return "UNKNOWN"
	}
}

// Collection names one string-valued image reference column keyed by a unique id.
type Collection struct {
	Name     string
	Table    string
	IDColumn string
	Field    string
}

var (
	ProfileImages = Collection{Name: "profile_images", Table: "users", IDColumn: "id", Field: "profile_image"}
	ServiceImages = Collection{Name: "service_images", Table: "service_images", IDColumn: "id", Field: "url"}
	CategoryIcons = Collection{Name: "category_icons", Table: "categories", IDColumn: "id", Field: "icon"}
)

// Collections is the fixed order in which reference migrations run.
func Collections() []Collection {
	return []Collection{ProfileImages, ServiceImages, CategoryIcons}
}

// Record is a single reference value and the id of the row holding it.
type Record struct {
	ID    string
	Value string
}

type ReferenceRepository interface {
	// ListContaining returns the records of c whose reference contains marker, ordered by id.
	ListContaining(ctx context.Context, c Collection, marker string) ([]Record, error)

	// UpdateReference replaces the reference of one record, provided it still holds oldValue.
	UpdateReference(ctx context.Context, c Collection, id string, oldValue string, newValue string) error
}
