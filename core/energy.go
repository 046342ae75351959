package core

import "github.com/signalsfoundry/wsn-simulator/model"

// EnergyModel holds the radio cost constants shared by every protocol.
//
// A transmission over distance d costs TxCost * d / divisor, where each
// protocol (and for PEGASIS each hop kind) has its own divisor. Receiving a
// relayed packet costs a flat RxCost * RxFactor regardless of distance.
type EnergyModel struct {
	TxCost   float64 `json:"tx_cost" yaml:"tx_cost"`
	RxCost   float64 `json:"rx_cost" yaml:"rx_cost"`
	RxFactor float64 `json:"rx_factor" yaml:"rx_factor"`

	DirectDivisor        float64 `json:"direct_divisor" yaml:"direct_divisor"`
	LEACHDivisor         float64 `json:"leach_divisor" yaml:"leach_divisor"`
	PEGASISChainDivisor  float64 `json:"pegasis_chain_divisor" yaml:"pegasis_chain_divisor"`
	PEGASISLeaderDivisor float64 `json:"pegasis_leader_divisor" yaml:"pegasis_leader_divisor"`
	TEENDivisor          float64 `json:"teen_divisor" yaml:"teen_divisor"`
}

// DefaultEnergyModel returns the reference cost constants.
func DefaultEnergyModel() EnergyModel {
	return EnergyModel{
		TxCost:               0.02,
		RxCost:               0.01,
		RxFactor:             0.4,
		DirectDivisor:        50,
		LEACHDivisor:         60,
		PEGASISChainDivisor:  70,
		PEGASISLeaderDivisor: 60,
		TEENDivisor:          55,
	}
}

// TransmitCost is the energy needed to send over distance d.
func (m EnergyModel) TransmitCost(d, divisor float64) float64 {
	return m.TxCost * (d / divisor)
}

// ReceiveCost is the flat charge paid by a relay for each inbound hop.
func (m EnergyModel) ReceiveCost() float64 {
	return m.RxCost * m.RxFactor
}

// Sensed readings for TEEN are drawn uniformly from this range.
const (
	SensedMin = 0.0
	SensedMax = 100.0
)

// Params bundles everything a routing round needs besides the node set.
type Params struct {
	Field       Field       `json:"field" yaml:"field"`
	BaseStation model.Point `json:"base_station" yaml:"base_station"`
	Energy      EnergyModel `json:"energy" yaml:"energy"`

	// TEEN thresholds. A node reports when its reading is at least
	// HardThreshold and the reading minus SoftThreshold is non-negative.
	HardThreshold float64 `json:"hard_threshold" yaml:"hard_threshold"`
	SoftThreshold float64 `json:"soft_threshold" yaml:"soft_threshold"`
}

// DefaultParams mirrors the reference deployment: a 100x100 field, the base
// station at (50, 115) and TEEN thresholds 50/5.
func DefaultParams() Params {
	return Params{
		Field:         DefaultField,
		BaseStation:   DefaultBaseStation,
		Energy:        DefaultEnergyModel(),
		HardThreshold: 50,
		SoftThreshold: 5,
	}
}
