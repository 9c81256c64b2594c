package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/l1jgo/spawnpool/internal/config"
	"github.com/l1jgo/spawnpool/internal/level"
)

// check loads the level without ticking it and prints every pool.
func check(cfgPath string) error {
	a, log, err := loadAssets(cfgPath, func(*config.Config) (*zap.Logger, error) {
		return zap.NewNop(), nil
	})
	if err != nil {
		return err
	}
	defer a.scripts.Close()

	printSection("Pools")
	lvl := level.New(levelOptions(a.cfg), level.Deps{
		Prototypes: a.protos,
		Scripts:    a.scripts,
		Log:        log,
	})
	loadErr := lvl.Load(a.defs)
	for _, s := range lvl.Registry().Stats() {
		printStat(s.Name, s.Size)
	}
	printStat("spawners", lvl.Directory().Len())
	lvl.Teardown()

	if loadErr != nil {
		printFail(loadErr.Error())
		return fmt.Errorf("check level: %w", loadErr)
	}
	printOK("level is consistent")
	return nil
}
