// Package proximity tracks which point of interest the camera is standing at.
package proximity

import (
	"github.com/zyedidia/generic/mapset"

	"starroom.ai/internal/sim/spatial"
)

const (
	Door = "door"
	Case = "case"
)

type POI struct {
	ID        string
	Position  spatial.Vec3
	Threshold float64
	// Active gates the POI; nil means always active.
	Active func() bool
}

// View is the result of the latest poll.
type View struct {
	Current string
	Near    mapset.Set[string]
}

func (v View) IsNear(id string) bool {
	return v.Near.Has(id)
}

type Service struct {
	pois     []POI
	distance map[string]float64
	view     View
	polled   bool
}

func New(pois ...POI) *Service {
	return &Service{
		pois:     pois,
		distance: make(map[string]float64, len(pois)),
		view:     View{Near: mapset.New[string]()},
	}
}

// Poll recomputes distances from camera. A nil camera defers: the previous view is kept and
// false is returned.
func (s *Service) Poll(camera *spatial.Vec3) bool {
	if camera == nil {
		return false
	}
	near := mapset.New[string]()
	current := ""
	best := 0.0
	for _, p := range s.pois {
		d := camera.Sub(p.Position).Len()
		s.distance[p.ID] = d
		if d > p.Threshold {
			continue
		}
		if p.Active != nil && !p.Active() {
			continue
		}
		near.Put(p.ID)
		if current == "" || d < best {
			current, best = p.ID, d
		}
	}
	s.view = View{Current: current, Near: near}
	s.polled = true
	return true
}

func (s *Service) Polled() bool { return s.polled }

func (s *Service) Current() string { return s.view.Current }

func (s *Service) Near(id string) bool { return s.view.IsNear(id) }

func (s *Service) View() View { return s.view }

func (s *Service) Distance(id string) (float64, bool) {
	d, ok := s.distance[id]
	return d, ok
}

func (s *Service) POIs() []POI { return append([]POI(nil), s.pois...) }
