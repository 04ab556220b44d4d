package session

import (
	"fmt"

	"github.com/DmitriyVTitov/size"
	"github.com/dustin/go-humanize"
)

// Stats summarizes a session's state.
type Stats struct {
	Objects    int
	SubObjects int
	Selected   int
	Resident   int
	Modified   int
	Mutations  uint64

	// GraphBytes is the approximate memory held by the segmentation graph.
	GraphBytes int
}

// Stats returns current counts.  Computing the graph size walks the whole graph.
func (s *Session) Stats() Stats {
	s.store.Lock()
	resident := len(s.store.Resident())
	s.store.Unlock()

	var modified int
	for coord := range s.counted {
		if s.store.IsModified(coord) {
			modified++
		}
	}
	return Stats{
		Objects:    s.graph.NumObjects(),
		SubObjects: s.graph.NumSubObjects(),
		Selected:   s.graph.NumSelected(),
		Resident:   resident,
		Modified:   modified,
		Mutations:  s.mutationID,
		GraphBytes: size.Of(s.graph),
	}
}

func (st Stats) String() string {
	graphSize := "unknown"
	if st.GraphBytes >= 0 {
		graphSize = humanize.Bytes(uint64(st.GraphBytes))
	}
	return fmt.Sprintf("%s objects, %s subobjects (%d selected), %d resident cubes (%d modified), %d mutations, graph uses %s",
		humanize.Comma(int64(st.Objects)), humanize.Comma(int64(st.SubObjects)), st.Selected,
		st.Resident, st.Modified, st.Mutations, graphSize)
}
