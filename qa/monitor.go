package qa

import (
	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/rerank"
)

// Monitor provides hooks to observe a query as it runs.
type Monitor interface {
	Start(question string)
	AfterExpansion(expanded string)
	AfterRetrieval(chunks []core.ScoredChunk)
	AfterRerank(result rerank.Result)
	GenerationFailed(err error)
	Finish(answer *core.Answer)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                      {}
func (n *noopMonitor) AfterExpansion(_ string)             {}
func (n *noopMonitor) AfterRetrieval(_ []core.ScoredChunk) {}
func (n *noopMonitor) AfterRerank(_ rerank.Result)         {}
func (n *noopMonitor) GenerationFailed(_ error)            {}
func (n *noopMonitor) Finish(_ *core.Answer)               {}
