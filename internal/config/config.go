// Package config decodes the YAML configuration document of spec.md §6
// into a concrete list of move.Move operators. Promoted from Gekko3D's
// indirect gopkg.in/yaml.v3 dependency to a direct one: it is the only
// pack example carrying yaml.v3 at all, and the spec's "structured, keyed"
// configuration document maps onto it directly.
package config

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cpasquier/faunus/internal/geom"
	"github.com/cpasquier/faunus/internal/hamiltonian"
	"github.com/cpasquier/faunus/internal/move"
	"github.com/cpasquier/faunus/internal/space"
)

// MoleculeEntry is one per-molecule parameter block shared by several
// move-kind keys in spec.md §6's table (atomtranslate, atomrotate,
// moltransrot, conformationswap, crankshaft, pivot).
type MoleculeEntry struct {
	Dir     [3]int  `yaml:"dir"`
	PerMol  bool    `yaml:"permol"`
	PerAtom bool    `yaml:"peratom"`
	Prob    float64 `yaml:"prob"`
	DP      float64 `yaml:"dp"`
	DPRot   float64 `yaml:"dprot"`
	MinLen  int     `yaml:"minlen"`
	MaxLen  int     `yaml:"maxlen"`
	// DPTypes overrides dp (or dprot, for atomrotate) per atom TypeID;
	// zero/absent entries fall back to the generic value above.
	DPTypes map[int]float64 `yaml:"dptype"`
}

func (e MoleculeEntry) dirVec() geom.Vec3 {
	return geom.Vec3{X: float64(e.Dir[0]), Y: float64(e.Dir[1]), Z: float64(e.Dir[2])}
}

// IonEntry decodes one activity-table row for the grand-canonical move
// kinds (spec.md §6 "atomgc", "gc", "gctit").
type IonEntry struct {
	TypeID   int     `yaml:"typeid"`
	Charge   float64 `yaml:"charge"`
	Activity float64 `yaml:"activity"`
}

// ProcessEntry decodes one equilibrium-process row for "titrate"/"gctit"
// (spec.md §6 "Equilibrium-process file / inline list").
type ProcessEntry struct {
	Bound   int     `yaml:"bound"`
	Unbound int     `yaml:"unbound"`
	PKa     float64 `yaml:"pk"`
	PH      float64 `yaml:"ph"`
}

// MovesDocument is the top-level `moves:` section of spec.md §6's
// configuration document.
type MovesDocument struct {
	AtomTranslate    map[string]MoleculeEntry `yaml:"atomtranslate"`
	AtomRotate       map[string]MoleculeEntry `yaml:"atomrotate"`
	MolTransRot      map[string]MoleculeEntry `yaml:"moltransrot"`
	ConformationSwap map[string]MoleculeEntry `yaml:"conformationswap"`
	Crankshaft       map[string]MoleculeEntry `yaml:"crankshaft"`
	Pivot            map[string]MoleculeEntry `yaml:"pivot"`

	Reptate map[string]struct {
		BondLength float64 `yaml:"bondlength"`
		Prob       float64 `yaml:"prob"`
	} `yaml:"reptate"`

	MolTransRotCluster *struct {
		ClusterGroup int     `yaml:"clustergroup"` // seed group index
		MobileGroup  int     `yaml:"mobilegroup"`  // atomic pool recruited around the seed
		Threshold    float64 `yaml:"threshold"`
		DP           float64 `yaml:"dp"`
		DPRot        float64 `yaml:"dprot"`
		Prob         float64 `yaml:"prob"`
	} `yaml:"moltransrotcluster"`

	ClusterMove *struct {
		StaticMol []string `yaml:"staticmol"`
		Threshold float64  `yaml:"threshold"`
		DP        float64  `yaml:"dp"`
		DPRot     float64  `yaml:"dprot"`
		Prob      float64  `yaml:"prob"`
	} `yaml:"ClusterMove"`

	CTransNR *struct {
		DP         float64 `yaml:"dp"`
		SkipEnergy bool    `yaml:"skipenergy"`
		Prob       float64 `yaml:"prob"`
	} `yaml:"ctransnr"`

	Isobaric *struct {
		DP         float64 `yaml:"dp"`
		PressuremM float64 `yaml:"pressure"`
		Prob       float64 `yaml:"prob"`
	} `yaml:"isobaric"`

	Isochoric *struct {
		DP   float64 `yaml:"dp"`
		Prob float64 `yaml:"prob"`
	} `yaml:"isochoric"`

	AtomGC *struct {
		SaltGroup int        `yaml:"saltgroup"`
		Cations   []IonEntry `yaml:"cations"`
		Anions    []IonEntry `yaml:"anions"`
		Prob      float64    `yaml:"prob"`
	} `yaml:"atomgc"`

	GC *struct {
		SaltGroup    int           `yaml:"saltgroup"`
		Components   []IonEntry    `yaml:"components"`
		Combinations []map[int]int `yaml:"combinations"` // TypeID -> multiplicity
		Prob         float64       `yaml:"prob"`
	} `yaml:"gc"`

	Titrate *struct {
		Processes  []ProcessEntry  `yaml:"processes"`
		SaveCharge map[int]float64 `yaml:"savecharge"`
		Prob       float64         `yaml:"prob"`
	} `yaml:"titrate"`

	GCTit *struct {
		SaltGroup  int            `yaml:"saltgroup"`
		Cation     IonEntry       `yaml:"cation"`
		Anion      IonEntry       `yaml:"anion"`
		Processes  []ProcessEntry `yaml:"processes"`
		Neutralize bool           `yaml:"neutralize"`
		Prob       float64        `yaml:"prob"`
	} `yaml:"gctit"`

	Temper *struct {
		Prob   float64 `yaml:"prob"`
		Format string  `yaml:"format"`
	} `yaml:"temper"`

	// Random seeds the process-wide RNG; it configures the driver rather
	// than producing a move, so Build ignores it and callers (cmd/faunus-mc)
	// read it directly.
	Random *struct {
		Seed     *uint64 `yaml:"seed"`
		Hardware bool    `yaml:"hardware"`
	} `yaml:"random"`

	JSONFile string `yaml:"_jsonfile"`
}

// Document is the decoded configuration document.
type Document struct {
	Moves MovesDocument `yaml:"moves"`
}

// Parse decodes raw YAML bytes into a Document.
func Parse(raw []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("config: parse: %w", err)
	}
	return doc, nil
}

// Collaborators carries the runtime dependencies some move kinds need
// beyond the Space itself: ctransnr evaluates recruitment energies against
// a Hamiltonian, conformationswap needs a per-molecule conformer library,
// and temper needs a link to its partner replica. A document that names one
// of those kinds while the matching collaborator is absent is a
// configuration error (spec.md §7: fails loudly at construction).
type Collaborators struct {
	Hamiltonian   hamiltonian.Hamiltonian
	Conformers    map[string][]move.Conformation // keyed by molecule name
	Replica       move.ReplicaLink
	ReplicaLeader bool
}

// sortedMolNames returns a map's keys sorted, so Build's output move list
// order is deterministic across runs given the same document (map
// iteration order is otherwise randomized, which would make the
// Propagator's move-selection RNG stream non-reproducible across process
// restarts even with a fixed seed).
func sortedMolNames(m map[string]MoleculeEntry) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Build constructs the concrete move.Move list described by doc, resolving
// molecule names to ids via moleculeLookup. Fails loudly (spec.md §7
// "Configuration error") on any unknown molecule name, a move kind whose
// required parameters are absent/contradictory, or a kind whose required
// collaborator is missing from col.
func Build(doc Document, sp *space.Space, col Collaborators, moleculeLookup map[string]int) ([]move.Move, error) {
	var moves []move.Move

	resolve := func(names []string) ([]int, error) {
		ids := make([]int, 0, len(names))
		for _, n := range names {
			id, ok := moleculeLookup[n]
			if !ok {
				return nil, fmt.Errorf("config: unknown molecule %q", n)
			}
			ids = append(ids, id)
		}
		return ids, nil
	}

	if len(doc.Moves.AtomTranslate) > 0 {
		names := sortedMolNames(doc.Moves.AtomTranslate)
		ids, err := resolve(names)
		if err != nil {
			return nil, err
		}
		for i, name := range names {
			e := doc.Moves.AtomTranslate[name]
			m := move.NewAtomTranslate(sp, []int{ids[i]}, e.Prob, e.DP, e.dirVec())
			m.DPByType = e.DPTypes
			moves = append(moves, m)
		}
	}

	if len(doc.Moves.AtomRotate) > 0 {
		names := sortedMolNames(doc.Moves.AtomRotate)
		ids, err := resolve(names)
		if err != nil {
			return nil, err
		}
		for i, name := range names {
			e := doc.Moves.AtomRotate[name]
			m := move.NewAtomRotate(sp, []int{ids[i]}, e.Prob, e.DPRot)
			m.DPByType = e.DPTypes
			moves = append(moves, m)
		}
	}

	if len(doc.Moves.MolTransRot) > 0 {
		names := sortedMolNames(doc.Moves.MolTransRot)
		ids, err := resolve(names)
		if err != nil {
			return nil, err
		}
		for i, name := range names {
			e := doc.Moves.MolTransRot[name]
			moves = append(moves, move.NewTransRot(sp, []int{ids[i]}, e.Prob, e.DP, e.DPRot, e.dirVec()))
		}
	}

	if len(doc.Moves.ConformationSwap) > 0 {
		names := sortedMolNames(doc.Moves.ConformationSwap)
		ids, err := resolve(names)
		if err != nil {
			return nil, err
		}
		for i, name := range names {
			lib := col.Conformers[name]
			if len(lib) == 0 {
				return nil, fmt.Errorf("config: conformationswap for %q requires a conformer library", name)
			}
			e := doc.Moves.ConformationSwap[name]
			moves = append(moves, move.NewConformationSwap(sp, []int{ids[i]}, e.Prob,
				map[int][]move.Conformation{ids[i]: lib}))
		}
	}

	if len(doc.Moves.Crankshaft) > 0 {
		names := sortedMolNames(doc.Moves.Crankshaft)
		ids, err := resolve(names)
		if err != nil {
			return nil, err
		}
		for i, name := range names {
			e := doc.Moves.Crankshaft[name]
			moves = append(moves, move.NewCrankshaft(sp, []int{ids[i]}, e.Prob, e.DP, e.MinLen, e.MaxLen))
		}
	}

	if len(doc.Moves.Pivot) > 0 {
		names := sortedMolNames(doc.Moves.Pivot)
		ids, err := resolve(names)
		if err != nil {
			return nil, err
		}
		for i, name := range names {
			e := doc.Moves.Pivot[name]
			moves = append(moves, move.NewPivot(sp, []int{ids[i]}, e.Prob, e.DP, e.MinLen, e.MaxLen))
		}
	}

	if len(doc.Moves.Reptate) > 0 {
		names := make([]string, 0, len(doc.Moves.Reptate))
		for k := range doc.Moves.Reptate {
			names = append(names, k)
		}
		sort.Strings(names)
		ids, err := resolve(names)
		if err != nil {
			return nil, err
		}
		for i, name := range names {
			e := doc.Moves.Reptate[name]
			moves = append(moves, move.NewReptation(sp, []int{ids[i]}, e.Prob, e.BondLength))
		}
	}

	if doc.Moves.MolTransRotCluster != nil {
		c := doc.Moves.MolTransRotCluster
		if c.ClusterGroup < 0 || c.ClusterGroup >= len(sp.Groups) {
			return nil, fmt.Errorf("config: moltransrotcluster clustergroup %d out of range", c.ClusterGroup)
		}
		if c.MobileGroup < 0 || c.MobileGroup >= len(sp.Groups) {
			return nil, fmt.Errorf("config: moltransrotcluster mobilegroup %d out of range", c.MobileGroup)
		}
		moves = append(moves, move.NewClusterSeeded(c.Prob, c.ClusterGroup, c.MobileGroup, c.Threshold, c.DP, c.DPRot))
	}

	if doc.Moves.ClusterMove != nil {
		c := doc.Moves.ClusterMove
		staticIDs, err := resolve(c.StaticMol)
		if err != nil {
			return nil, err
		}
		moves = append(moves, move.NewClusterFull(c.Prob, staticIDs, c.Threshold, c.DP, c.DPRot))
	}

	if doc.Moves.CTransNR != nil {
		c := doc.Moves.CTransNR
		if col.Hamiltonian == nil {
			return nil, fmt.Errorf("config: ctransnr requires a Hamiltonian collaborator")
		}
		moves = append(moves, move.NewClusterTranslateNR(col.Hamiltonian, c.Prob, c.DP, c.SkipEnergy))
	}

	if doc.Moves.Isobaric != nil {
		c := doc.Moves.Isobaric
		moves = append(moves, move.NewIsobaric(c.Prob, c.DP, c.PressuremM))
	}

	if doc.Moves.Isochoric != nil {
		c := doc.Moves.Isochoric
		moves = append(moves, move.NewIsochoric(c.Prob, c.DP))
	}

	if doc.Moves.AtomGC != nil {
		c := doc.Moves.AtomGC
		if len(c.Cations) == 0 || len(c.Anions) == 0 {
			return nil, fmt.Errorf("config: atomgc requires at least one cation and one anion")
		}
		moves = append(moves, move.NewSaltMove(c.Prob, c.SaltGroup, toIonSpecies(c.Cations), toIonSpecies(c.Anions)))
	}

	if doc.Moves.GC != nil {
		c := doc.Moves.GC
		if len(c.Components) == 0 || len(c.Combinations) == 0 {
			return nil, fmt.Errorf("config: gc requires non-empty component and combination tables")
		}
		known := make(map[int]bool, len(c.Components))
		comps := make([]move.GCComponent, len(c.Components))
		for i, e := range c.Components {
			comps[i] = move.GCComponent{TypeID: e.TypeID, Charge: e.Charge, Activity: e.Activity}
			known[e.TypeID] = true
		}
		combos := make([]move.GCCombination, len(c.Combinations))
		for i, counts := range c.Combinations {
			for typeID := range counts {
				if !known[typeID] {
					return nil, fmt.Errorf("config: gc combination %d references unknown component type %d", i, typeID)
				}
			}
			combos[i] = move.GCCombination{Counts: counts}
		}
		moves = append(moves, move.NewGreenGC(c.Prob, c.SaltGroup, comps, combos))
	}

	if doc.Moves.Titrate != nil {
		c := doc.Moves.Titrate
		if len(c.Processes) == 0 {
			return nil, fmt.Errorf("config: titrate requires a non-empty process list")
		}
		moves = append(moves, move.NewTitrate(c.Prob, toProcesses(c.Processes), c.SaveCharge))
	}

	if doc.Moves.GCTit != nil {
		c := doc.Moves.GCTit
		if len(c.Processes) == 0 {
			return nil, fmt.Errorf("config: gctit requires a non-empty process list")
		}
		m, err := move.NewGrandCanonicalTitrate(c.Prob, c.SaltGroup,
			move.IonSpecies{TypeID: c.Cation.TypeID, Charge: c.Cation.Charge, Activity: c.Cation.Activity},
			move.IonSpecies{TypeID: c.Anion.TypeID, Charge: c.Anion.Charge, Activity: c.Anion.Activity},
			toProcesses(c.Processes), c.Neutralize)
		if err != nil {
			return nil, fmt.Errorf("config: gctit: %w", err)
		}
		moves = append(moves, m)
	}

	if doc.Moves.Temper != nil {
		c := doc.Moves.Temper
		if col.Replica == nil {
			return nil, fmt.Errorf("config: temper requires a replica link collaborator")
		}
		moves = append(moves, move.NewTemper(c.Prob, col.Replica, col.ReplicaLeader))
	}

	return moves, nil
}

func toIonSpecies(entries []IonEntry) []move.IonSpecies {
	out := make([]move.IonSpecies, len(entries))
	for i, e := range entries {
		out[i] = move.IonSpecies{TypeID: e.TypeID, Charge: e.Charge, Activity: e.Activity}
	}
	return out
}

func toProcesses(entries []ProcessEntry) []move.Process {
	out := make([]move.Process, len(entries))
	for i, e := range entries {
		out[i] = move.Process{Bound: e.Bound, Unbound: e.Unbound, PKa: e.PKa, PH: e.PH}
	}
	return out
}
