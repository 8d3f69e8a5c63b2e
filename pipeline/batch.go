package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wgdzlh/rockmask/log"
	"github.com/wgdzlh/rockmask/raster"
	"github.com/wgdzlh/rockmask/report"
)

// 单景处理结果
type TileOutcome struct {
	Tile     string
	Outputs  []string
	Err      error
	Skipped  bool
	Duration time.Duration
	Summary  *report.Summary
}

type BatchResult struct {
	Outcomes []TileOutcome
}

// 所有失败景的错误合并（含景号）
func (r BatchResult) Err() (err error) {
	for _, o := range r.Outcomes {
		if o.Err != nil {
			err = multierr.Append(err, fmt.Errorf("tile %s: %w", o.Tile, o.Err))
		}
	}
	return
}

func (r BatchResult) Count() (ok, failed, skipped int) {
	for _, o := range r.Outcomes {
		switch {
		case o.Skipped:
			skipped++
		case o.Err != nil:
			failed++
		default:
			ok++
		}
	}
	return
}

// 批处理：各景互不共享状态，Workers为1时顺序处理
type Batch struct {
	Pipeline *Pipeline
	Writers  []Writer // 第一个为主输出，其余为附加输出（如缩略图）
	Workers  int
	Metrics  *Metrics
	logTag   string
}

func NewBatch(p *Pipeline, workers int, metrics *Metrics, writers ...Writer) *Batch {
	if workers < 1 {
		workers = 1
	}
	return &Batch{Pipeline: p, Writers: writers, Workers: workers, Metrics: metrics, logTag: "Batch:"}
}

// 处理所有景。单景失败只记录，不中断批次；ctx取消后不再调度新的景，已开始的景照常完成
func (b *Batch) Run(ctx context.Context, tiles []string) (ret BatchResult) {
	ret.Outcomes = make([]TileOutcome, len(tiles))
	var g errgroup.Group
	g.SetLimit(b.Workers)
	log.Info(b.logTag+"start batch", zap.Int("tiles", len(tiles)), zap.Int("workers", b.Workers))
	for i, tile := range tiles {
		if err := ctx.Err(); err != nil {
			ret.Outcomes[i] = TileOutcome{Tile: tile, Err: err, Skipped: true}
			b.Metrics.observe(ret.Outcomes[i])
			continue
		}
		i, tile := i, tile
		g.Go(func() error {
			o := b.runTile(context.WithoutCancel(ctx), tile)
			b.Metrics.observe(o)
			ret.Outcomes[i] = o
			return nil
		})
	}
	_ = g.Wait()
	ok, failed, skipped := ret.Count()
	log.Info(b.logTag+"batch done", zap.Int("ok", ok), zap.Int("failed", failed), zap.Int("skipped", skipped))
	return
}

func (b *Batch) runTile(ctx context.Context, tile string) (o TileOutcome) {
	o.Tile = tile
	tic := time.Now()
	defer func() {
		o.Duration = time.Since(tic)
		if o.Err != nil {
			log.Error(b.logTag+"tile failed", zap.String("tile", tile), zap.Duration("took", o.Duration), zap.Error(o.Err))
		}
	}()
	prod, err := b.Pipeline.Process(ctx, tile)
	if err != nil {
		o.Err = err
		return
	}
	s := report.Summarize(prod.Result, prod.Land, prod.Branches[0].Mask, prod.Branches[1].Mask, prod.Snow, prod.Water)
	o.Summary = &s
	saveTic := time.Now()
	for _, w := range b.Writers {
		out, err := w.WriteResult(ctx, prod.Result)
		if err != nil {
			o.Err = raster.WithTile(err, tile)
			for _, written := range o.Outputs {
				os.Remove(written)
			}
			o.Outputs = nil
			return
		}
		o.Outputs = append(o.Outputs, out)
	}
	log.Info(b.logTag+"saved", zap.String("tile", tile), zap.Strings("outputs", o.Outputs), zap.Duration("took", time.Since(saveTic)))
	return
}
