// Package all lists every extension bundled with conduit.
package all

import (
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/extensions/extkit"
	"github.com/aretw0/conduit/pkg/extensions/gemini"
	"github.com/aretw0/conduit/pkg/extensions/googlemaps"
	"github.com/aretw0/conduit/pkg/extensions/hubspot"
	"github.com/aretw0/conduit/pkg/extensions/knowledge"
	"github.com/aretw0/conduit/pkg/extensions/logic"
	"github.com/aretw0/conduit/pkg/extensions/marvel"
	"github.com/aretw0/conduit/pkg/extensions/msgraph"
	"github.com/aretw0/conduit/pkg/extensions/nlu"
	"github.com/aretw0/conduit/pkg/extensions/openai"
	"github.com/aretw0/conduit/pkg/extensions/sharepoint"
	"github.com/aretw0/conduit/pkg/extensions/yext"
)

// Extensions returns the bundled extensions. opts apply to every extension calling
// an upstream API and must not include endpoint overrides.
func Extensions(opts ...extkit.Option) []domain.Extension {
	return []domain.Extension{
		marvel.Extension(opts...),
		googlemaps.Extension(opts...),
		openai.Extension(opts...),
		gemini.Extension(opts...),
		hubspot.Extension(opts...),
		msgraph.Extension(opts...),
		sharepoint.Extension(opts...),
		yext.Extension(opts...),
		knowledge.Extension(opts...),
		nlu.Extension(),
		logic.Extension(),
	}
}
