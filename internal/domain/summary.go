package domain

// Summary holds the headline figures of a dataset.
type Summary struct {
	Source          string  `json:"source"`
	Records         int     `json:"records"`
	MaxID           int64   `json:"max_id"`
	Latest          *Record `json:"latest,omitempty"`
	MeanUEThpDl     float64 `json:"mean_ue_thp_dl"`
	MeanUEThpUl     float64 `json:"mean_ue_thp_ul"`
	MeanLatency     float64 `json:"mean_latency"`
	MeanRlcSduDelay float64 `json:"mean_rlc_sdu_delay_dl"`
	DeltaUEThpDl    float64 `json:"delta_ue_thp_dl"`
	DeltaUEThpUl    float64 `json:"delta_ue_thp_ul"`
}

// Summarize computes the headline figures of records. Deltas compare the last
// record with the one before it.
func Summarize(source string, records []Record) Summary {
	s := Summary{Source: source, Records: len(records)}
	if len(records) == 0 {
		return s
	}

	var dl, ul, latency, delay float64
	for _, r := range records {
		dl += r.UEThpDl
		ul += r.UEThpUl
		latency += float64(r.Latency)
		delay += r.RlcSduDelayDl
		if r.ID > s.MaxID {
			s.MaxID = r.ID
		}
	}
	n := float64(len(records))
	s.MeanUEThpDl = dl / n
	s.MeanUEThpUl = ul / n
	s.MeanLatency = latency / n
	s.MeanRlcSduDelay = delay / n

	latest := records[len(records)-1]
	s.Latest = &latest
	if len(records) > 1 {
		prev := records[len(records)-2]
		s.DeltaUEThpDl = latest.UEThpDl - prev.UEThpDl
		s.DeltaUEThpUl = latest.UEThpUl - prev.UEThpUl
	}
	return s
}
