package output

import (
	"encoding/json"
	"time"

	"github.com/loopboard/loopboard/internal/cache"
	"github.com/loopboard/loopboard/internal/ratelimit"
)

type bucketView struct {
	Client      string `json:"client"`
	WindowStart string `json:"window_start"`
	Count       int64  `json:"count"`
	ExpiresIn   string `json:"expires_in,omitempty"`
}

func bucketsJSON(buckets []ratelimit.Bucket) (string, error) {
	views := make([]bucketView, 0, len(buckets))
	for _, b := range buckets {
		view := bucketView{
			Client:      b.ClientKey,
			WindowStart: time.Unix(b.WindowStart, 0).UTC().Format(time.RFC3339),
			Count:       b.Count,
		}
		if b.TTL > 0 {
			view.ExpiresIn = b.TTL.Round(time.Second).String()
		}
		views = append(views, view)
	}

	data, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type strategyView struct {
	Name            string `json:"name"`
	CacheControl    string `json:"cache_control,omitempty"`
	CDNCacheControl string `json:"cdn_cache_control,omitempty"`
	Vary            string `json:"vary,omitempty"`
	TTL             string `json:"ttl,omitempty"`
	UserScoped      bool   `json:"user_scoped"`
}

func strategiesJSON(strategies []cache.Strategy) (string, error) {
	views := make([]strategyView, 0, len(strategies))
	for _, s := range strategies {
		view := strategyView{
			Name:            s.Name,
			CacheControl:    s.CacheControl,
			CDNCacheControl: s.CDNCacheControl,
			Vary:            s.Vary,
			UserScoped:      s.UserScoped,
		}
		if s.TTL > 0 {
			view.TTL = s.TTL.String()
		}
		views = append(views, view)
	}

	data, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
