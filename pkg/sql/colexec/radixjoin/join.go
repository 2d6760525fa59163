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

	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/common/moerr"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/container/hashtable"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/container/relation"
)

// Join matches one bucket pair and appends the (left, right) row pairs to
// in.Out. The smaller side is built into a hopscotch table, the larger one
// probes it. It returns the number of pairs appended.
func Join(ctx context.Context, in *JoinInput) (int, error) {
	if in.AlreadyDeposited {
		return 0, nil
	}
	left, right := in.left(), in.right()
	build, probe := left, right
	buildLeft := true
	if right.Len() < left.Len() {
		build, probe = right, left
		buildLeft = false
	}
	if build.IsEmpty() {
		return 0, nil
	}

	ht, err := hashtable.NewHopscotchMap(ctx, in.Hopscotch.Options())
	if err != nil {
		return 0, err
	}
	for _, t := range build.Tuples {
		if err := ht.Insert(t.Item, t.RowID); err != nil {
			return 0, moerr.NewBuildFailure(ctx, in.Rank, "%s", err.Error()).WithCause(err)
		}
	}

	cnt := 0
	for _, t := range probe.Tuples {
		for _, row := range ht.Find(t.Item) {
			if buildLeft {
				in.Out.Append(relation.RowPair{Left: row, Right: t.RowID})
			} else {
				in.Out.Append(relation.RowPair{Left: t.RowID, Right: row})
			}
			cnt++
		}
	}
	return cnt, nil
}
