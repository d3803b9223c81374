package rootcause

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/miradorstack/mirador-triage/internal/models"
)

func analyzeDependencies(bug models.BugCandidate, actx models.AnalysisContext) models.DependencyImpact {
	impact := models.DependencyImpact{Component: bug.Component}
	if bug.Component != "" {
		impact.Transitive = transitiveClosure(bug.Component, actx.ComponentGraph)
	}

	service := serviceOf(bug)
	if mesh, ok := actx.ServiceMesh[service]; ok {
		impact.Downstream = append([]string(nil), mesh.Dependencies...)
		impact.CriticalPath = criticalPath(service, mesh.Dependencies, actx.ServiceMesh)
	}
	impact.Upstream = upstreamOf(service, actx.ServiceMesh)

	if consumers, ok := actx.DataLineage[bug.Component]; ok {
		impact.DataConsumers = append([]string(nil), consumers...)
	} else if consumers, ok := actx.DataLineage[service]; ok {
		impact.DataConsumers = append([]string(nil), consumers...)
	}
	return impact
}

// transitiveClosure walks graph depth-first from root and returns every reachable
// component except root, in discovery order.
func transitiveClosure(root string, graph map[string][]string) []string {
	seen := map[string]bool{root: true}
	var out []string
	var visit func(string)
	visit = func(node string) {
		for _, next := range graph[node] {
			if seen[next] {
				continue
			}
			seen[next] = true
			out = append(out, next)
			visit(next)
		}
	}
	visit(root)
	return out
}

func upstreamOf(service string, mesh map[string]models.MeshService) []string {
	if service == "" {
		return nil
	}
	var out []string
	for name, svc := range mesh {
		for _, dep := range svc.Dependencies {
			if strings.EqualFold(dep, service) {
				out = append(out, name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// criticalPath keeps the downstream services whose capability nothing else in the mesh provides.
func criticalPath(service string, downstream []string, mesh map[string]models.MeshService) []string {
	var out []string
	for _, dep := range downstream {
		capability := mesh[dep].Capability
		redundant := false
		if capability != "" {
			for name, svc := range mesh {
				if name != dep && name != service && svc.Capability == capability {
					redundant = true
					break
				}
			}
		}
		if !redundant {
			out = append(out, dep)
		}
	}
	return out
}

// upstreamFailures reports upstream services whose errors precede the bug
// within the correlation window.
func (a *Analyzer) upstreamFailures(at time.Time, upstream []string, actx models.AnalysisContext) []models.ContributingFactor {
	if len(upstream) == 0 {
		return nil
	}
	first := make(map[string]time.Time)
	for _, e := range errorEvents(actx) {
		lead := at.Sub(e.Timestamp)
		if lead <= 0 || lead > a.cfg.TimeWindow {
			continue
		}
		for _, svc := range upstream {
			if strings.EqualFold(e.Component, svc) {
				if t, ok := first[svc]; !ok || e.Timestamp.Before(t) {
					first[svc] = e.Timestamp
				}
			}
		}
	}
	var out []models.ContributingFactor
	for _, svc := range upstream {
		t, ok := first[svc]
		if !ok {
			continue
		}
		out = append(out, models.ContributingFactor{
			Type:        "upstream_failure",
			Description: fmt.Sprintf("%s errors precede the bug by %s", svc, at.Sub(t).Round(time.Second)),
		})
	}
	return out
}

func serviceOf(bug models.BugCandidate) string {
	if bug.Service != "" {
		return bug.Service
	}
	return bug.Component
}
