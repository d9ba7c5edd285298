package repository

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"FXPull/internal/domain/models"
	drepo "FXPull/internal/domain/repository"
	applogger "FXPull/pkg/logger"
)

// FileStore implements ArtifactStore on a plain directory tree:
//
//	raw/<INSTRUMENT>_<gran>.csv            merged candles
//	raw/<INSTRUMENT>_<gran>.gaps.json      series window, gap set, dropped count
//	raw/news_<INSTRUMENT>.csv              articles
//	raw/news_<INSTRUMENT>.meta.json        dropped count
//	processed/<INSTRUMENT>_<gran>_indicators.csv
//	model_ready/<INSTRUMENT>_<gran>_dataset.csv
//	model_ready/<INSTRUMENT>_<gran>_dataset.report.json
//
// Each key overwrites only its own files, so stages stay independently
// re-runnable.
type FileStore struct {
	root string
	l    *applogger.Logger
}

func NewFileStore(root string, l *applogger.Logger) (*FileStore, error) {
	for _, dir := range []string{"raw", "processed", "model_ready"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("filestore: %w", err)
		}
	}
	return &FileStore{root: root, l: l}, nil
}

var _ drepo.ArtifactStore = (*FileStore)(nil)

// seriesMeta is the gaps.json sidecar.
type seriesMeta struct {
	Instrument  string             `json:"instrument"`
	Granularity models.Granularity `json:"granularity"`
	Start       time.Time          `json:"start"`
	End         time.Time          `json:"end"`
	Dropped     int                `json:"dropped"`
	Gaps        []models.Gap       `json:"gaps"`
}

type newsMeta struct {
	Instrument string `json:"instrument"`
	Dropped    int    `json:"dropped"`
}

func (s *FileStore) seriesPath(instrument string, g models.Granularity) string {
	return filepath.Join(s.root, "raw", fmt.Sprintf("%s_%s.csv", instrument, g))
}

func (s *FileStore) gapsPath(instrument string, g models.Granularity) string {
	return filepath.Join(s.root, "raw", fmt.Sprintf("%s_%s.gaps.json", instrument, g))
}

func (s *FileStore) newsPath(instrument string) string {
	return filepath.Join(s.root, "raw", fmt.Sprintf("news_%s.csv", instrument))
}

func (s *FileStore) newsMetaPath(instrument string) string {
	return filepath.Join(s.root, "raw", fmt.Sprintf("news_%s.meta.json", instrument))
}

func (s *FileStore) indicatorsPath(instrument string, g models.Granularity) string {
	return filepath.Join(s.root, "processed", fmt.Sprintf("%s_%s_indicators.csv", instrument, g))
}

func (s *FileStore) datasetPath(instrument string, g models.Granularity) string {
	return filepath.Join(s.root, "model_ready", fmt.Sprintf("%s_%s_dataset.csv", instrument, g))
}

func (s *FileStore) reportPath(instrument string, g models.Granularity) string {
	return filepath.Join(s.root, "model_ready", fmt.Sprintf("%s_%s_dataset.report.json", instrument, g))
}

func (s *FileStore) WriteSeries(series *models.CandleSeries) error {
	records := [][]string{{"timestamp", "open", "high", "low", "close", "volume", "source"}}
	for _, c := range series.Candles {
		records = append(records, []string{
			c.Timestamp.UTC().Format(time.RFC3339),
			ffloat(c.Open), ffloat(c.High), ffloat(c.Low), ffloat(c.Close), ffloat(c.Volume),
			c.Source,
		})
	}
	if err := writeCSV(s.seriesPath(series.Instrument, series.Granularity), records); err != nil {
		return err
	}
	meta := seriesMeta{
		Instrument:  series.Instrument,
		Granularity: series.Granularity,
		Start:       series.Start,
		End:         series.End,
		Dropped:     series.Dropped,
		Gaps:        series.Gaps,
	}
	return writeJSON(s.gapsPath(series.Instrument, series.Granularity), meta)
}

func (s *FileStore) ReadSeries(instrument string, g models.Granularity) (*models.CandleSeries, error) {
	records, err := readCSV(s.seriesPath(instrument, g))
	if err != nil {
		return nil, err
	}
	series := &models.CandleSeries{Instrument: instrument, Granularity: g}
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		if len(rec) != 7 {
			return nil, fmt.Errorf("filestore: series row %d: %d columns", i, len(rec))
		}
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("filestore: series row %d: %w", i, err)
		}
		c := models.Candle{
			Instrument:  instrument,
			Timestamp:   ts.UTC(),
			Granularity: g,
			Source:      rec[6],
		}
		if c.Open, err = pfloat(rec[1]); err != nil {
			return nil, fmt.Errorf("filestore: series row %d: %w", i, err)
		}
		if c.High, err = pfloat(rec[2]); err != nil {
			return nil, fmt.Errorf("filestore: series row %d: %w", i, err)
		}
		if c.Low, err = pfloat(rec[3]); err != nil {
			return nil, fmt.Errorf("filestore: series row %d: %w", i, err)
		}
		if c.Close, err = pfloat(rec[4]); err != nil {
			return nil, fmt.Errorf("filestore: series row %d: %w", i, err)
		}
		if c.Volume, err = pfloat(rec[5]); err != nil {
			return nil, fmt.Errorf("filestore: series row %d: %w", i, err)
		}
		series.Candles = append(series.Candles, c)
	}

	var meta seriesMeta
	if err := readJSON(s.gapsPath(instrument, g), &meta); err != nil {
		return nil, err
	}
	series.Start = meta.Start
	series.End = meta.End
	series.Gaps = meta.Gaps
	series.Dropped = meta.Dropped
	return series, nil
}

func (s *FileStore) WriteArticles(instrument string, articles []models.Article, dropped int) error {
	records := [][]string{{"published_at", "source", "headline", "body", "url"}}
	for _, a := range articles {
		records = append(records, []string{
			a.PublishedAt.UTC().Format(time.RFC3339),
			a.Source, a.Headline, a.Body, a.URL,
		})
	}
	if err := writeCSV(s.newsPath(instrument), records); err != nil {
		return err
	}
	return writeJSON(s.newsMetaPath(instrument), newsMeta{Instrument: instrument, Dropped: dropped})
}

func (s *FileStore) ReadArticles(instrument string) ([]models.Article, int, error) {
	records, err := readCSV(s.newsPath(instrument))
	if err != nil {
		return nil, 0, err
	}
	var articles []models.Article
	for i, rec := range records {
		if i == 0 {
			continue
		}
		if len(rec) != 5 {
			return nil, 0, fmt.Errorf("filestore: article row %d: %d columns", i, len(rec))
		}
		at, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, 0, fmt.Errorf("filestore: article row %d: %w", i, err)
		}
		articles = append(articles, models.Article{
			Instrument:  instrument,
			PublishedAt: at.UTC(),
			Source:      rec[1],
			Headline:    rec[2],
			Body:        rec[3],
			URL:         rec[4],
		})
	}
	var meta newsMeta
	if err := readJSON(s.newsMetaPath(instrument), &meta); err != nil {
		return nil, 0, err
	}
	return articles, meta.Dropped, nil
}

func (s *FileStore) WriteIndicatorRows(instrument string, g models.Granularity, rows []models.IndicatorRow) error {
	header := []string{"timestamp", "open", "high", "low", "close", "volume", "source"}
	header = append(header, models.IndicatorCatalog...)
	records := [][]string{header}
	for _, r := range rows {
		rec := []string{
			r.Timestamp.UTC().Format(time.RFC3339),
			ffloat(r.Open), ffloat(r.High), ffloat(r.Low), ffloat(r.Close), ffloat(r.Volume),
			r.Source,
		}
		for _, name := range models.IndicatorCatalog {
			// Undefined values serialize as empty cells.
			if v, ok := r.Value(name); ok {
				rec = append(rec, ffloat(v))
			} else {
				rec = append(rec, "")
			}
		}
		records = append(records, rec)
	}
	return writeCSV(s.indicatorsPath(instrument, g), records)
}

func (s *FileStore) ReadIndicatorRows(instrument string, g models.Granularity) ([]models.IndicatorRow, error) {
	records, err := readCSV(s.indicatorsPath(instrument, g))
	if err != nil {
		return nil, err
	}
	wantCols := 7 + len(models.IndicatorCatalog)
	var rows []models.IndicatorRow
	for i, rec := range records {
		if i == 0 {
			continue
		}
		if len(rec) != wantCols {
			return nil, fmt.Errorf("filestore: indicator row %d: %d columns, want %d", i, len(rec), wantCols)
		}
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("filestore: indicator row %d: %w", i, err)
		}
		row := models.IndicatorRow{
			Candle: models.Candle{
				Instrument:  instrument,
				Timestamp:   ts.UTC(),
				Granularity: g,
				Source:      rec[6],
			},
			Values: make(map[string]float64),
		}
		if row.Open, err = pfloat(rec[1]); err != nil {
			return nil, fmt.Errorf("filestore: indicator row %d: %w", i, err)
		}
		if row.High, err = pfloat(rec[2]); err != nil {
			return nil, fmt.Errorf("filestore: indicator row %d: %w", i, err)
		}
		if row.Low, err = pfloat(rec[3]); err != nil {
			return nil, fmt.Errorf("filestore: indicator row %d: %w", i, err)
		}
		if row.Close, err = pfloat(rec[4]); err != nil {
			return nil, fmt.Errorf("filestore: indicator row %d: %w", i, err)
		}
		if row.Volume, err = pfloat(rec[5]); err != nil {
			return nil, fmt.Errorf("filestore: indicator row %d: %w", i, err)
		}
		for j, name := range models.IndicatorCatalog {
			cell := rec[7+j]
			if cell == "" {
				continue
			}
			v, err := pfloat(cell)
			if err != nil {
				return nil, fmt.Errorf("filestore: indicator row %d %s: %w", i, name, err)
			}
			row.Values[name] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *FileStore) WriteDataset(instrument string, g models.Granularity, rows []models.ModelReadyRow, report *models.RunReport) error {
	header := []string{"period_start", "open", "high", "low", "close", "volume"}
	header = append(header, models.IndicatorCatalog...)
	header = append(header, "news_score", "article_count")
	records := [][]string{header}
	for _, r := range rows {
		rec := []string{
			r.PeriodStart.UTC().Format(time.RFC3339),
			ffloat(r.Open), ffloat(r.High), ffloat(r.Low), ffloat(r.Close), ffloat(r.Volume),
		}
		for _, name := range models.IndicatorCatalog {
			if v, ok := r.Indicators[name]; ok {
				rec = append(rec, ffloat(v))
			} else {
				rec = append(rec, "")
			}
		}
		rec = append(rec, ffloat(r.NewsScore), strconv.Itoa(r.ArticleCount))
		records = append(records, rec)
	}
	if err := writeCSV(s.datasetPath(instrument, g), records); err != nil {
		return err
	}
	if err := writeJSON(s.reportPath(instrument, g), report); err != nil {
		return err
	}
	if s.l != nil {
		s.l.Info("dataset artifact written",
			applogger.String("instrument", instrument),
			applogger.String("granularity", string(g)),
			applogger.Int("rows", len(rows)))
	}
	return nil
}

func (s *FileStore) ReadDataset(instrument string, g models.Granularity) ([]models.ModelReadyRow, error) {
	records, err := readCSV(s.datasetPath(instrument, g))
	if err != nil {
		return nil, err
	}
	wantCols := 6 + len(models.IndicatorCatalog) + 2
	var rows []models.ModelReadyRow
	for i, rec := range records {
		if i == 0 {
			continue
		}
		if len(rec) != wantCols {
			return nil, fmt.Errorf("filestore: dataset row %d: %d columns, want %d", i, len(rec), wantCols)
		}
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("filestore: dataset row %d: %w", i, err)
		}
		row := models.ModelReadyRow{
			Instrument:  instrument,
			PeriodStart: ts.UTC(),
			Indicators:  make(map[string]float64),
		}
		if row.Open, err = pfloat(rec[1]); err != nil {
			return nil, fmt.Errorf("filestore: dataset row %d: %w", i, err)
		}
		if row.High, err = pfloat(rec[2]); err != nil {
			return nil, fmt.Errorf("filestore: dataset row %d: %w", i, err)
		}
		if row.Low, err = pfloat(rec[3]); err != nil {
			return nil, fmt.Errorf("filestore: dataset row %d: %w", i, err)
		}
		if row.Close, err = pfloat(rec[4]); err != nil {
			return nil, fmt.Errorf("filestore: dataset row %d: %w", i, err)
		}
		if row.Volume, err = pfloat(rec[5]); err != nil {
			return nil, fmt.Errorf("filestore: dataset row %d: %w", i, err)
		}
		for j, name := range models.IndicatorCatalog {
			cell := rec[6+j]
			if cell == "" {
				continue
			}
			v, err := pfloat(cell)
			if err != nil {
				return nil, fmt.Errorf("filestore: dataset row %d %s: %w", i, name, err)
			}
			row.Indicators[name] = v
		}
		if row.NewsScore, err = pfloat(rec[wantCols-2]); err != nil {
			return nil, fmt.Errorf("filestore: dataset row %d: %w", i, err)
		}
		if row.ArticleCount, err = strconv.Atoi(rec[wantCols-1]); err != nil {
			return nil, fmt.Errorf("filestore: dataset row %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *FileStore) ReadReport(instrument string, g models.Granularity) (*models.RunReport, error) {
	var report models.RunReport
	if err := readJSON(s.reportPath(instrument, g), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func writeCSV(path string, records [][]string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("filestore: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		_ = f.Close()
		return fmt.Errorf("filestore: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("filestore: close %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("filestore: %w", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("filestore: read %s: %w", path, err)
	}
	return records, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: marshal %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("filestore: %w", err)
	}
	return os.Rename(tmp, path)
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("filestore: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("filestore: unmarshal %s: %w", path, err)
	}
	return nil
}

func ffloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func pfloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
