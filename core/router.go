package core

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/signalsfoundry/wsn-simulator/model"
)

var (
	// ErrUnknownProtocol indicates a protocol value with no router.
	ErrUnknownProtocol = model.ErrUnknownProtocol
	// ErrProtocolNotComparable indicates a protocol that cannot take part
	// in a comparison run.
	ErrProtocolNotComparable = errors.New("protocol not comparable")
)

// RoundResult is the outcome of one routing round. Nodes is the same slice
// the router was given, mutated in place; ownership passes back to the
// caller for the next round.
type RoundResult struct {
	Nodes     []*model.SensorNode
	Edges     []model.Edge
	Delivered int
}

// Router runs one round of a routing protocol over a node collection.
type Router interface {
	Protocol() model.Protocol
	Route(nodes []*model.SensorNode, packets int) RoundResult
}

// NewRouter returns the router for p. rng is only consulted by protocols
// with randomised behaviour (LEACH head election, TEEN readings).
func NewRouter(p model.Protocol, params Params, rng *rand.Rand) (Router, error) {
	switch p {
	case model.ProtocolDirect:
		return &DirectRouter{params: params}, nil
	case model.ProtocolLEACH:
		return &LEACHRouter{params: params, rng: rng}, nil
	case model.ProtocolPEGASIS:
		return &PEGASISRouter{params: params}, nil
	case model.ProtocolTEEN:
		return &TEENRouter{params: params, rng: rng}, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownProtocol, p)
	}
}

// RunRound runs a single round of protocol p.
func RunRound(p model.Protocol, nodes []*model.SensorNode, packets int, params Params, rng *rand.Rand) (RoundResult, error) {
	r, err := NewRouter(p, params, rng)
	if err != nil {
		return RoundResult{Nodes: nodes}, err
	}
	return r.Route(nodes, packets), nil
}
