package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"warden/internal/config"

	"go.uber.org/zap"
)

// Poster periodically publishes the bot's guild count to the bot list so
// the listing stays current.
type Poster struct {
	cfg        config.BotListConfig
	logger     *zap.Logger
	guildCount func() int
	client     *http.Client
	stop       chan struct{}
	done       chan struct{}
}

func NewPoster(cfg config.BotListConfig, logger *zap.Logger, guildCount func() int) *Poster {
	return &Poster{
		cfg:        cfg,
		logger:     logger,
		guildCount: guildCount,
		client:     &http.Client{Timeout: 10 * time.Second},
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (p *Poster) Start() {
	interval := time.Duration(p.cfg.PostIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	go func() {
		defer close(p.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.post()
			case <-p.stop:
				return
			}
		}
	}()
}

func (p *Poster) Stop() {
	close(p.stop)
	<-p.done
}

func (p *Poster) post() {
	if p.cfg.StatsURL == "" || p.cfg.Token == "" {
		return
	}

	body, err := json.Marshal(map[string]int{"server_count": p.guildCount()})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.StatsURL, bytes.NewReader(body))
	if err != nil {
		p.logger.Warn("stats post request build failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", p.cfg.Token)

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("stats post failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		p.logger.Warn("stats post rejected", zap.String("status", fmt.Sprintf("%d", resp.StatusCode)))
		return
	}
	p.logger.Debug("stats posted", zap.Int("guilds", p.guildCount()))
}
