package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

const EnvVarPrefix = "OP_LANES"

var (
	Profile = &cli.StringFlag{
		Name:    "profile",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PROFILE"),
		Usage:   "Path to an orchestrator profile (eg. 'lanes.yaml')",
	}
	Isolate = &cli.StringSliceFlag{
		Name:    "isolate",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "ISOLATE"),
		Usage:   "Name prefix of lane-local bindings, may be repeated (eg. 'db.,cache.')",
	}
	MaxLanes = &cli.IntFlag{
		Name:    "max-lanes",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "MAX_LANES"),
		Usage:   "Upper bound on the number of lanes a plan may use. Set to 0 for no limit.",
	}
	Summary = &cli.BoolFlag{
		Name:    "summary",
		Value:   true,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SUMMARY"),
		Usage:   "Print a per-lane result table after each run",
	}
)

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	Profile,
	Isolate,
	MaxLanes,
	Summary,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
