// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/common/concurrent"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/common/moerr"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/config"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/logutil"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/sql/colexec/radixjoin"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/sql/plan/stats"
)

var (
	configFile = flag.String("cfg", "", "toml configuration of the join, defaults are used when empty")
	leftRows   = flag.Int("left-rows", 1000000, "rows of the generated left relation")
	rightRows  = flag.Int("right-rows", 400000, "rows of the generated right relation")
	distinct   = flag.Int("distinct", 100000, "distinct join key values of both relations")
	seed       = flag.Int64("seed", 0, "random seed, 0 picks one from the clock")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		panic(fmt.Sprintf("failed to parse config from %s, error: %s", *configFile, err.Error()))
	}
	logutil.SetupMOLogger(&cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()
	if err := run(ctx, cfg); err != nil {
		logutil.Error("radix join failed", zap.Error(err))
		os.Exit(1)
	}
}

func loadConfig(file string) (*config.Config, error) {
	if file == "" {
		return config.NewConfig(), nil
	}
	return config.ParseConfigFromFile(file)
}

func run(ctx context.Context, cfg *config.Config) error {
	if *distinct <= 0 {
		return moerr.NewInvalidInput(ctx, "distinct must be positive, got %d", *distinct)
	}
	s := *seed
	if s == 0 {
		s = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(s))
	left := generate(r, *leftRows, *distinct)
	right := generate(r, *rightRows, *distinct)

	pool := concurrent.NewThreadPoolExecutor(cfg.Join.Workers)
	colStats := make(map[stats.ColumnRef]stats.ColumnStats, 2)
	for i, col := range [][]uint64{left, right} {
		cs, err := stats.Collect(ctx, col, pool)
		if err != nil {
			return err
		}
		ref := stats.ColumnRef{Relation: i, Column: 0}
		colStats[ref] = cs
		logutil.Info("column statistics", zap.String("column", ref.String()), zap.String("stats", cs.String()))
	}

	joiner, err := radixjoin.NewJoiner(ctx, cfg.Join)
	if err != nil {
		return err
	}
	defer joiner.Close()

	exec := radixjoin.NewExecutor(joiner, radixjoin.MemCatalog{{left}, {right}}, colStats)
	start := time.Now()
	outs, err := exec.Execute(ctx, []radixjoin.JoinSpec{{LeftRelation: 0, RightRelation: 1}})
	if err != nil {
		return err
	}
	for _, out := range outs {
		logutil.Info("join done",
			zap.String("spec", out.Spec.String()),
			zap.Int("pairs", len(out.Pairs)),
			zap.Int64("seed", s),
			zap.Duration("duration", time.Since(start)))
	}
	return nil
}

func generate(r *rand.Rand, rows, distinct int) []uint64 {
	col := make([]uint64, rows)
	for i := range col {
		col[i] = uint64(r.Intn(distinct))
	}
	return col
}
