// Package app binds the catalog, cache inspector and engine together
// behind the HTTP layer's Service interface.
package app

import (
	"context"

	"classd/internal/catalog"
	"classd/internal/engine"
	"classd/internal/modelcache"
	"classd/pkg/types"
)

type App struct {
	engine    *engine.Engine
	analyzers []types.Analyzer
	cache     *modelcache.Inspector
}

func New(eng *engine.Engine, analyzers []types.Analyzer, cache *modelcache.Inspector) *App {
	return &App{engine: eng, analyzers: analyzers, cache: cache}
}

// Analyze resolves the analyzer selection and starts an asynchronous run.
// An empty selection runs the whole catalog.
func (a *App) Analyze(ctx context.Context, req types.AnalyzeRequest) (string, error) {
	sel, err := catalog.Select(a.analyzers, req.Analyzers)
	if err != nil {
		return "", err
	}
	return a.engine.Start(ctx, engine.RunRequest{
		Lines:            req.Lines,
		Analyzers:        sel,
		KeepAssetsLoaded: req.KeepAssetsLoaded,
	})
}

func (a *App) Result() (types.MatrixSnapshot, bool) { return a.engine.Result() }

func (a *App) Progress() types.ProgressResponse { return a.engine.Progress() }

func (a *App) Status() types.StatusResponse { return a.engine.Status() }

// Analyzers lists the catalog with advisory cache information per entry.
func (a *App) Analyzers() types.AnalyzersResponse {
	infos := make([]types.AnalyzerInfo, 0, len(a.analyzers))
	for _, d := range a.analyzers {
		info := types.AnalyzerInfo{Analyzer: d}
		if d.Kind == types.KindLearned && a.cache != nil {
			info.Cached = a.cache.IsCached(d.RemoteID)
		} else if d.Kind == types.KindRuleBased {
			// Rule-based analyzers have no assets to fetch.
			info.Cached = true
		}
		infos = append(infos, info)
	}
	resp := types.AnalyzersResponse{Analyzers: infos}
	if a.cache != nil {
		resp.EstDownloadBytes = a.cache.EstimateDownloadBytes(a.analyzers)
	}
	return resp
}

func (a *App) Ready() bool { return a.engine.Ready() }
