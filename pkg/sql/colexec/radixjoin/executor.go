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


package radixjoin

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/common/moerr"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/container/relation"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/logutil"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/sql/plan/stats"
)

// JoinSpec is one equi-join predicate left.LeftColumn = right.RightColumn.
type JoinSpec struct {
	LeftRelation  int
	RightRelation int
	LeftColumn    int
	RightColumn   int
}

func (s JoinSpec) String() string {
	return fmt.Sprintf("%d.%d=%d.%d", s.LeftRelation, s.LeftColumn, s.RightRelation, s.RightColumn)
}

func (s JoinSpec) leftRef() stats.ColumnRef {
	return stats.ColumnRef{Relation: s.LeftRelation, Column: s.LeftColumn}
}

func (s JoinSpec) rightRef() stats.ColumnRef {
	return stats.ColumnRef{Relation: s.RightRelation, Column: s.RightColumn}
}

// Catalog resolves a join key column to its values, row i of the relation
// being col[i].
type Catalog interface {
	Column(relation, column int) ([]uint64, error)
}

// MemCatalog holds columns in memory, indexed by relation then column.
type MemCatalog [][][]uint64

func (c MemCatalog) Column(relation, column int) ([]uint64, error) {
	if relation < 0 || relation >= len(c) || column < 0 || column >= len(c[relation]) {
		return nil, moerr.NewNoSuchColumn(moerr.Context(), relation, column)
	}
	return c[relation][column], nil
}

type JoinOutput struct {
	Spec  JoinSpec
	Pairs []relation.RowPair
}

// Executor runs the joins chosen by the optimizer in the given order.
type Executor struct {
	joiner  *Joiner
	catalog Catalog
	stats   map[stats.ColumnRef]stats.ColumnStats
}

// NewExecutor builds an executor. colStats may miss columns, the bit width
// of their joins then follows the row count alone.
func NewExecutor(joiner *Joiner, catalog Catalog, colStats map[stats.ColumnRef]stats.ColumnStats) *Executor {
	if colStats == nil {
		colStats = make(map[stats.ColumnRef]stats.ColumnStats)
	}
	return &Executor{joiner: joiner, catalog: catalog, stats: colStats}
}

// Execute runs every spec and returns one output per spec, in order. The
// first failing join aborts the rest.
func (e *Executor) Execute(ctx context.Context, specs []JoinSpec) ([]JoinOutput, error) {
	outputs := make([]JoinOutput, 0, len(specs))
	for _, spec := range specs {
		pairs, err := e.execute(ctx, spec)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, JoinOutput{Spec: spec, Pairs: pairs})
	}
	return outputs, nil
}

func (e *Executor) execute(ctx context.Context, spec JoinSpec) ([]relation.RowPair, error) {
	ls, lok := e.stats[spec.leftRef()]
	rs, rok := e.stats[spec.rightRef()]
	if lok && rok && !ls.Overlaps(rs) {
		logutil.Info("skipping join of disjoint key ranges",
			zap.String("spec", spec.String()),
			zap.String("left", ls.String()),
			zap.String("right", rs.String()))
		return nil, nil
	}

	lcol, err := e.catalog.Column(spec.LeftRelation, spec.LeftColumn)
	if err != nil {
		return nil, err
	}
	rcol, err := e.catalog.Column(spec.RightRelation, spec.RightColumn)
	if err != nil {
		return nil, err
	}

	rows, distinct := len(lcol), 0
	if lok {
		distinct = ls.Distinct
	}
	if len(rcol) < rows {
		rows, distinct = len(rcol), 0
		if rok {
			distinct = rs.Distinct
		}
	}
	bits := RadixBits(e.joiner.Params(), rows, distinct)
	logutil.Debug("executing join",
		zap.String("spec", spec.String()),
		zap.Int("left", len(lcol)),
		zap.Int("right", len(rcol)),
		zap.Uint("bits", bits))

	res, err := e.joiner.Join(ctx, relation.FromColumn(lcol), relation.FromColumn(rcol), bits)
	if err != nil {
		return nil, err
	}
	return res.Pairs(), nil
}
