// Package osv queries the OSV.dev vulnerability database.
//
// The provider uses the batch endpoint to map packages to vulnerability IDs
// in one round trip, then hydrates each ID into a full record through the
// per-vulnerability endpoint. Hydration responses are cached: vulnerability
// records change rarely and are shared across many packages.
package osv

import (
	"context"
	"time"

	"github.com/ossf/osv-schema/bindings/go/osvschema"

	"github.com/complykit/complykit/pkg/advisor"
	"github.com/complykit/complykit/pkg/cache"
	"github.com/complykit/complykit/pkg/httputil"
	"github.com/complykit/complykit/pkg/model"
)

// Name is the provider name.
const Name = "osv"

const (
	queryEndpoint = "https://api.osv.dev/v1/querybatch"
	vulnsEndpoint = "https://api.osv.dev/v1/vulns/"

	// vulnTTL caches hydrated vulnerability records. OSV records are
	// append-mostly; a day of staleness is acceptable for reports.
	vulnTTL = 24 * time.Hour
)

// ecosystems maps Identifier type coordinates to OSV ecosystem names.
// Packages of unlisted types are not queryable and silently skipped.
var ecosystems = map[string]string{
	"NPM":      "npm",
	"GoMod":    "Go",
	"Maven":    "Maven",
	"PyPI":     "PyPI",
	"Cargo":    "crates.io",
	"Gem":      "RubyGems",
	"Composer": "Packagist",
	"NuGet":    "NuGet",
}

// Provider queries OSV.dev.
type Provider struct {
	client  *httputil.Client
	baseURL string
}

// New creates the provider. The cache stores hydrated vulnerability
// records; pass a [cache.NullCache] to disable caching.
func New(c cache.Cache) *Provider {
	return &Provider{
		client:  httputil.NewClient(c, nil),
		baseURL: "",
	}
}

func (p *Provider) Name() string { return Name }

type queryPackage struct {
	Name      string `json:"name"`
	Ecosystem string `json:"ecosystem"`
}

type query struct {
	Package queryPackage `json:"package"`
	Version string       `json:"version"`
}

type batchedQuery struct {
	Queries []query `json:"queries"`
}

type minimalVulnerability struct {
	ID string `json:"id"`
}

type batchedResponse struct {
	Results []struct {
		Vulns []minimalVulnerability `json:"vulns"`
	} `json:"results"`
}

// Query implements [advisor.Provider].
func (p *Provider) Query(ctx context.Context, pkgs []model.Package) (map[model.Identifier][]model.Vulnerability, error) {
	var queried []model.Identifier
	var batch batchedQuery
	for _, pkg := range pkgs {
		eco, ok := ecosystems[pkg.ID.Type]
		if !ok || pkg.ID.Version == "" {
			continue
		}
		queried = append(queried, pkg.ID)
		batch.Queries = append(batch.Queries, query{
			Package: queryPackage{Name: osvName(pkg.ID), Ecosystem: eco},
			Version: pkg.ID.Version,
		})
	}
	if len(batch.Queries) == 0 {
		return nil, nil
	}

	var resp batchedResponse
	if err := p.client.PostJSON(ctx, p.url(queryEndpoint), &batch, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) != len(queried) {
		return nil, httputil.ErrNetwork
	}

	out := make(map[model.Identifier][]model.Vulnerability)
	for i, res := range resp.Results {
		for _, minimal := range res.Vulns {
			vuln, err := p.hydrate(ctx, minimal.ID)
			if err != nil {
				return nil, err
			}
			out[queried[i]] = append(out[queried[i]], vuln)
		}
	}
	return out, nil
}

// hydrate fetches the full record for a vulnerability ID, served from cache
// when possible.
func (p *Provider) hydrate(ctx context.Context, id string) (model.Vulnerability, error) {
	var record osvschema.Vulnerability
	err := p.client.Cached(ctx, Name, id, vulnTTL, &record, func() error {
		return p.client.GetJSON(ctx, p.url(vulnsEndpoint)+id, &record)
	})
	if err != nil {
		return model.Vulnerability{}, err
	}
	return convert(&record), nil
}

// convert maps an OSV record to the internal vulnerability model, scoring
// the highest-severity CVSS vector the record carries.
func convert(record *osvschema.Vulnerability) model.Vulnerability {
	vuln := model.Vulnerability{
		ID:      record.Id,
		Summary: record.Summary,
		Aliases: record.Aliases,
	}
	for _, ref := range record.References {
		vuln.References = append(vuln.References, model.VulnerabilityReference{
			URL:  ref.Url,
			Type: ref.Type.String(),
		})
	}
	for _, sev := range record.Severity {
		score, rating, err := model.ScoreVector(sev.Score)
		if err != nil {
			continue
		}
		if vuln.Severity == "" || score > vuln.Score {
			vuln.Severity = sev.Score
			vuln.Score = score
			vuln.Rating = rating
		}
	}
	return vuln
}

// osvName composes the ecosystem-native package name OSV expects:
// namespace-qualified for npm scopes and Go module paths.
func osvName(id model.Identifier) string {
	if id.Namespace == "" {
		return id.Name
	}
	return id.Namespace + "/" + id.Name
}

// url lets tests redirect endpoints at a local server.
func (p *Provider) url(endpoint string) string {
	if p.baseURL == "" {
		return endpoint
	}
	switch endpoint {
	case queryEndpoint:
		return p.baseURL + "/v1/querybatch"
	default:
		return p.baseURL + "/v1/vulns/"
	}
}

var _ advisor.Provider = (*Provider)(nil)
