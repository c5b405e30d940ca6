package target

import (
	"os"

	"github.com/tagship/tagship/internal/dryrun"
	"github.com/tagship/tagship/internal/proc"
	"github.com/tagship/tagship/internal/tagerr"
	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

func init() {
	Register("cargo", cargoTarget)
}

// CargoPackage is one crate in a workspace's dependency graph, as supplied
// via the target's options (resolved from the workspace manifest upstream;
// the engine itself never parses Cargo.toml).
type CargoPackage struct {
	Name         string
	Dependencies []string
}

type cargoNode struct {
	id   int64
	name string
}

func (n *cargoNode) ID() int64 { return n.id }

// TopologicalPublishOrder implements spec.md 4.E.1: every package appears
// after all of its in-set dependencies. Grounded on internal/batch/batch.go's
// use of gonum.org/v1/gonum/graph/simple + graph/topo.Sort, generalized from
// a build-dependency DAG to a publish-dependency DAG. A cycle is impossible
// by the upstream manifest validator's assumption (spec.md 4.E.1); if one
// somehow appears, it is surfaced as an error rather than silently broken,
// unlike the teacher's cycle-breaking fixup (there is no safe "bootstrap"
// equivalent for publishing).
func TopologicalPublishOrder(packages []CargoPackage) ([]string, error) {
	g := simple.NewDirectedGraph()

	byName := make(map[string]*cargoNode, len(packages))
	for i, p := range packages {
		n := &cargoNode{id: int64(i), name: p.Name}
		byName[p.Name] = n
		g.AddNode(n)
	}

	// Edge dependency -> dependent, so that topo.Sort's "u before v on every
	// edge u->v" ordering places a package's dependencies before it.
	for _, p := range packages {
		dependent := byName[p.Name]
		for _, dep := range p.Dependencies {
			if depNode, ok := byName[dep]; ok {
				g.SetEdge(g.NewEdge(depNode, dependent))
			}
		}
	}

	sorted, err := topo.Sort(g)
	if err != nil {
		return nil, xerrors.Errorf("cargo workspace has a publish-order cycle: %w", err)
	}

	order := make([]string, len(sorted))
	for i, n := range sorted {
		order[i] = n.(*cargoNode).name
	}
	return order, nil
}

func cargoTarget(tc Context) error {
	bin := os.Getenv("CARGO_BIN")
	if bin == "" {
		bin = "cargo"
	}
	token := os.Getenv("CARGO_REGISTRY_TOKEN")
	if token == "" {
		return &tagerr.MissingPrerequisite{Target: "cargo", What: "CARGO_REGISTRY_TOKEN"}
	}

	packages := decodeCargoPackages(tc.Options["packages"])
	order, err := TopologicalPublishOrder(packages)
	if err != nil {
		return err
	}

	tc.Logger.Infow("publishing cargo workspace", "order", order)
	for _, name := range order {
		args := []string{"publish", "-p", name, "--token", token}
		err := dryrun.PerformVoid(func() error {
			_, err := proc.Spawn(tc.Ctx, bin, args, proc.Options{}, tc.Logger)
			return err
		})
		if err != nil {
			return xerrors.Errorf("cargo publish %s: %w", name, err)
		}
	}
	return nil
}

func decodeCargoPackages(raw interface{}) []CargoPackage {
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]CargoPackage, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		var deps []string
		if rawDeps, ok := m["dependencies"].([]interface{}); ok {
			for _, d := range rawDeps {
				if s, ok := d.(string); ok {
					deps = append(deps, s)
				}
			}
		}
		out = append(out, CargoPackage{Name: name, Dependencies: deps})
	}
	return out
}
