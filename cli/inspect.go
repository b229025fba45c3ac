package cli

import (
	"os"

	"github.com/absmach/fedavg/pkg/params"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TensorStats summarises the values of one tensor.
type TensorStats struct {
	Shape []int   `json:"shape"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Norm  float64 `json:"l2_norm"`
}

type LayerStats struct {
	Name   string      `json:"name"`
	Weight TensorStats `json:"weight"`
	Bias   TensorStats `json:"bias"`
}

type ModelStats struct {
	Round     *uint64      `json:"round,omitempty"`
	NumParams int          `json:"num_params"`
	Layers    []LayerStats `json:"layers"`
}

func describe(t params.Tensor) TensorStats {
	mean, std := stat.MeanStdDev(t.Data, nil)
	if len(t.Data) < 2 {
		std = 0
	}

	return TensorStats{
		Shape: t.Shape,
		Min:   floats.Min(t.Data),
		Max:   floats.Max(t.Data),
		Mean:  mean,
		Std:   std,
		Norm:  floats.Norm(t.Data, 2),
	}
}

// Inspect summarises an encoded parameter set layer by layer.
func Inspect(data []byte) (ModelStats, error) {
	snap, err := params.Unmarshal(data)
	if err != nil {
		return ModelStats{}, err
	}

	ms := ModelStats{Round: snap.Round, NumParams: snap.Params.NumParams()}
	for _, name := range snap.Params.Names() {
		l := snap.Params[name]
		ms.Layers = append(ms.Layers, LayerStats{
			Name:   name,
			Weight: describe(l.Weight),
			Bias:   describe(l.Bias),
		})
	}

	return ms, nil
}

func NewInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Inspect an encoded model",
		Long: `Decode a persisted, published or client parameter file and print
per-layer shapes and statistics.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			ms, err := Inspect(data)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, ms)
		},
	}
}
