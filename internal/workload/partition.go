package workload

import (
	"context"
	"strconv"
	"strings"

	"rstress/internal/core"
	"rstress/internal/options"
)

// AddDropPartition mutates the partition layout by one step per call:
//   - HASH/KEY: add N partitions or coalesce N, where N is a random draw of
//     up to a tenth of the partition budget and at least one;
//   - RANGE: drop a random partition, or reorganize one into two with a
//     fresh boundary inside the preceding gap (refused when the gap is
//     too narrow to split);
//   - LIST: drop a partition returning its values to the pool, or carve a
//     new partition out of the pool (refused when the pool is too small).
func (w *Worker) AddDropPartition(ctx context.Context, t *core.Table) {
	p := t.Part
	switch p.Type {
	case core.PartHash, core.PartKey:
		w.addDropHashKey(ctx, t)
	case core.PartRange:
		w.addDropRange(ctx, t)
	case core.PartList:
		w.addDropList(ctx, t)
	}
}

func (w *Worker) addDropHashKey(ctx context.Context, t *core.Table) {
	p := t.Part
	delta := w.rng.Int(w.Shared.Opts.Int(options.MaxPartitions)) / 10
	if delta == 0 {
		delta = 1
	}
	if w.rng.Int(1) == 0 || p.Count <= delta {
		if w.ExecuteSQL(ctx, "ALTER TABLE "+t.Name+" ADD PARTITION PARTITIONS "+
			strconv.Itoa(delta)) {
			t.LockDDL()
			p.Count += delta
			t.UnlockDDL()
		}
	} else {
		if w.ExecuteSQL(ctx, "ALTER TABLE "+t.Name+w.Gen.AlgorithmLock()+
			", COALESCE PARTITION "+strconv.Itoa(delta)) {
			t.LockDDL()
			p.Count -= delta
			t.UnlockDDL()
		}
	}
}

func (w *Worker) addDropRange(ctx context.Context, t *core.Table) {
	p := t.Part
	if w.rng.Int(1) == 1 {
		t.LockDDL()
		if len(p.Ranges) == 0 {
			t.UnlockDDL()
			return
		}
		name := p.Ranges[w.rng.Int(len(p.Ranges)-1)].Name
		t.UnlockDDL()

		if w.ExecuteSQL(ctx, "ALTER TABLE "+t.Name+w.Gen.AlgorithmLock()+
			", DROP PARTITION "+name) {
			t.LockDDL()
			p.Count--
			for i := range p.Ranges {
				if p.Ranges[i].Name == name {
					p.Ranges = append(p.Ranges[:i], p.Ranges[i+1:]...)
					break
				}
			}
			t.UnlockDDL()
		}
		return
	}

	// reorganize one partition into two
	t.LockDDL()
	if len(p.Ranges) == 0 {
		t.UnlockDDL()
		return
	}
	var first, second int
	var name string
	if len(p.Ranges) > 1 {
		pos := w.rng.Between(1, len(p.Ranges)-1)
		// refuse to split when the gap can't hold a fresh boundary
		if p.Ranges[pos].Bound-p.Ranges[pos-1].Bound <= 2 {
			t.UnlockDDL()
			return
		}
		first = w.rng.Between(p.Ranges[pos-1].Bound+1, p.Ranges[pos].Bound-1)
		second = p.Ranges[pos].Bound
		name = p.Ranges[pos].Name
	} else {
		if p.Ranges[0].Bound <= 2 {
			t.UnlockDDL()
			return
		}
		first = w.rng.Between(1, p.Ranges[0].Bound-1)
		second = p.Ranges[0].Bound
		name = p.Ranges[0].Name
	}
	sqlText := "ALTER TABLE " + t.Name + " REORGANIZE PARTITION " + name +
		" INTO ( PARTITION " + name + "a VALUES LESS THAN (" + strconv.Itoa(first) +
		"), PARTITION " + name + "b VALUES LESS THAN (" + strconv.Itoa(second) + "))"
	t.UnlockDDL()

	if w.ExecuteSQL(ctx, sqlText) {
		t.LockDDL()
		for i := range p.Ranges {
			if p.Ranges[i].Name == name {
				p.Ranges = append(p.Ranges[:i], p.Ranges[i+1:]...)
				break
			}
		}
		p.Ranges = append(p.Ranges, core.RangePart{Name: name + "a", Bound: first})
		p.Ranges = append(p.Ranges, core.RangePart{Name: name + "b", Bound: second})
		sortRanges(p.Ranges)
		p.Count++
		t.UnlockDDL()
	}
}

func sortRanges(v []core.RangePart) {
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j].Bound < v[j-1].Bound; j-- {
			v[j], v[j-1] = v[j-1], v[j]
		}
	}
}

func (w *Worker) addDropList(ctx context.Context, t *core.Table) {
	p := t.Part
	if w.rng.Int(1) == 0 {
		t.LockDDL()
		if len(p.Lists) == 0 {
			t.UnlockDDL()
			return
		}
		name := p.Lists[w.rng.Int(len(p.Lists)-1)].Name
		t.UnlockDDL()

		if w.ExecuteSQL(ctx, "ALTER TABLE "+t.Name+w.Gen.AlgorithmLock()+
			", DROP PARTITION "+name) {
			t.LockDDL()
			p.Count--
			for i := range p.Lists {
				if p.Lists[i].Name == name {
					p.Remaining = append(p.Remaining, p.Lists[i].Values...)
					p.Lists = append(p.Lists[:i], p.Lists[i+1:]...)
					break
				}
			}
			t.UnlockDDL()
		}
		return
	}

	// add a partition from the still-available pool
	want := w.rng.Int(w.Shared.Opts.Int(options.InitialRecords)) /
		w.rng.Between(1, w.Shared.Opts.Int(options.MaxPartitions))
	if want == 0 {
		want = 1
	}
	t.LockDDL()
	if want > len(p.Remaining) {
		t.UnlockDDL()
		return
	}
	taken := make([]int, 0, want)
	pool := append([]int(nil), p.Remaining...)
	for len(taken) < want {
		at := w.rng.Int(len(pool) - 1)
		taken = append(taken, pool[at])
		pool = append(pool[:at], pool[at+1:]...)
	}
	t.UnlockDDL()

	name := "p" + strconv.Itoa(w.rng.Between(100, 1000))
	values := make([]string, len(taken))
	for i, v := range taken {
		values[i] = strconv.Itoa(v)
	}
	sqlText := "ALTER TABLE " + t.Name + " ADD PARTITION (PARTITION " + name +
		" VALUES IN ( " + strings.Join(values, ",") + "))"

	if w.ExecuteSQL(ctx, sqlText) {
		t.LockDDL()
		p.Count++
		p.Lists = append(p.Lists, core.ListPart{Name: name, Values: taken})
		remaining := p.Remaining[:0]
	next:
		for _, v := range p.Remaining {
			for _, took := range taken {
				if v == took {
					continue next
				}
			}
			remaining = append(remaining, v)
		}
		p.Remaining = remaining
		t.UnlockDDL()
	}
}
