package simulation

import (
	"github.com/peter-kozarec/flowdelta/pkg/common"
	"github.com/peter-kozarec/flowdelta/pkg/utility/fixed"
	"go.uber.org/zap"
)

type Configuration struct {
	InitialCapital       fixed.Point `yaml:"initial_capital" json:"initial_capital"`
	PositionSizeFraction fixed.Point `yaml:"position_size" json:"position_size"`
}

func DefaultConfiguration() Configuration {
	return Configuration{
		InitialCapital:       fixed.FromInt64(100000, 0),
		PositionSizeFraction: fixed.PointOne,
	}
}

func (c Configuration) Validate() error {
	if !c.InitialCapital.IsPos() {
		return common.NewParameterError("initial_capital", c.InitialCapital, "must be positive")
	}
	if !c.PositionSizeFraction.IsPos() || c.PositionSizeFraction.Gt(fixed.One) {
		return common.NewParameterError("position_size", c.PositionSizeFraction, "must be in (0, 1]")
	}
	return nil
}

func (c Configuration) Fields() []zap.Field {
	return []zap.Field{
		zap.String("initial_capital", c.InitialCapital.String()),
		zap.String("position_size", c.PositionSizeFraction.String()),
	}
}
