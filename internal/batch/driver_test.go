package batch

import (
	"context"
	"encoding/csv"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "iapdcli/internal/errors"
	"iapdcli/internal/shared/testutil"
)

var (
	twoIndividuals = heredoc.Doc(`
		<?xml version="1.0" encoding="UTF-8"?>
		<IAPDIndividualReport>
		  <Indvls>
		    <Indvl>
		      <Info name="Jane Roe" crd="1001"/>
		      <CrntEmps><CrntEmp orgNm="Acme Securities"/></CrntEmps>
		      <Exms><Exm exmCd="S7"/><Exm exmCd="S63"/></Exms>
		    </Indvl>
		    <Indvl>
		      <Info name="John Doe" crd="1002"/>
		    </Indvl>
		  </Indvls>
		</IAPDIndividualReport>
	`)

	oneIndividual = heredoc.Doc(`
		<IAPDIndividualReport><Indvls>
		  <Indvl><Info name="Ann Lee" crd="1003"/><DRPs><DRP hasRegAction="Y"/></DRPs></Indvl>
		</Indvls></IAPDIndividualReport>
	`)

	otherInfoKeys = heredoc.Doc(`
		<IAPDIndividualReport><Indvls>
		  <Indvl><Info lastNm="Kim" firstNm="Bo" crd="2001"/></Indvl>
		</Indvls></IAPDIndividualReport>
	`)

	malformed = "<IAPDIndividualReport><Indvls><Indvl>"

	unknownEncoding = `<?xml version="1.0" encoding="x-no-such-charset"?><R/>`

	wantHeaders = []string{"name", "crd", "CrntEmps", "Exms", "Dsgntns", "PrevRgstns", "EmpHists", "OthrBuss", "DRPs"}
)

func newFS(t *testing.T, inputs map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("xml", 0755))
	for name, content := range inputs {
		require.NoError(t, afero.WriteFile(fs, filepath.Join("xml", name), []byte(content), 0644))
	}
	return fs
}

func readCSV(t *testing.T, fs afero.Fs, path string) [][]string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	return records
}

// recordingObserver keeps every event in order
type recordingObserver struct {
	events   []string
	results  []FileResult
	finished *Report
}

func (o *recordingObserver) FileStarted(index, total int, name string) {
	o.events = append(o.events, "start "+name)
}

func (o *recordingObserver) FileFinished(index, total int, result FileResult) {
	o.events = append(o.events, "finish "+result.Name)
	o.results = append(o.results, result)
}

func (o *recordingObserver) BatchFinished(report *Report) {
	o.events = append(o.events, "done")
	o.finished = report
}

type recordedMetric struct {
	status string
	rows   int
}

type recordingMetrics struct{ observed []recordedMetric }

func (m *recordingMetrics) FileProcessed(status string, rows int, _ time.Duration) {
	m.observed = append(m.observed, recordedMetric{status, rows})
}

func TestRun_ValidAndMalformedFile(t *testing.T) {
	fs := newFS(t, map[string]string{
		"a.xml": twoIndividuals,
		"b.xml": malformed,
	})
	logger, logs := testutil.NewTestLogger(t)

	report, err := New(fs, WithLogger(logger)).Run(context.Background(), "xml", "output.csv")
	require.NoError(t, err)

	assert.Equal(t, "output.csv", report.OutputPath)
	records := readCSV(t, fs, "output.csv")
	require.Len(t, records, 3)
	assert.Equal(t, wantHeaders, records[0])
	assert.Equal(t, []string{"Jane Roe", "1001", "Acme Securities", "S7|S63", "", "", "", "", ""}, records[1])
	assert.Equal(t, []string{"John Doe", "1002", "", "", "", "", "", "", ""}, records[2])

	require.Len(t, report.Files, 2)
	assert.Equal(t, StatusOK, report.Files[0].Status)
	assert.Equal(t, 2, report.Files[0].Rows)
	assert.Equal(t, StatusParseFailed, report.Files[1].Status)
	assert.Error(t, report.Files[1].Err)
	assert.Zero(t, report.Files[1].Rows)

	testutil.AssertLogContains(t, logs, slog.LevelInfo, "Processing file")
	testutil.AssertLogContains(t, logs, slog.LevelError, "Error parsing XML file")
	assert.True(t, logs.ContainsAttr("filename", "b.xml"))
	assert.True(t, logs.ContainsAttr("component", "batch"))
}

func TestRun_NeverOverwritesOutput(t *testing.T) {
	fs := newFS(t, map[string]string{"a.xml": twoIndividuals})
	require.NoError(t, afero.WriteFile(fs, "output.csv", []byte("keep me"), 0644))

	d := New(fs)
	first, err := d.Run(context.Background(), "xml", "output.csv")
	require.NoError(t, err)
	second, err := d.Run(context.Background(), "xml", "output.csv")
	require.NoError(t, err)

	assert.Equal(t, "output_01.csv", first.OutputPath)
	assert.Equal(t, "output_02.csv", second.OutputPath)

	original, err := afero.ReadFile(fs, "output.csv")
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(original))
	assert.Equal(t, readCSV(t, fs, "output_01.csv"), readCSV(t, fs, "output_02.csv"))
}

func TestRun_RowCountIsSumOfIndividuals(t *testing.T) {
	fs := newFS(t, map[string]string{
		"a.xml": twoIndividuals,
		"b.xml": oneIndividual,
		"c.xml": malformed,
	})

	report, err := New(fs).Run(context.Background(), "xml", "out/output.csv")
	require.NoError(t, err)

	records := readCSV(t, fs, "out/output.csv")
	assert.Len(t, records, 1+3)
	assert.Equal(t, 3, report.TotalRows())
	assert.Len(t, report.Succeeded(), 2)
	assert.Len(t, report.Failed(), 1)
	for i, rec := range records {
		assert.Len(t, rec, len(wantHeaders), "record %d", i)
	}
	assert.Equal(t, []string{"Ann Lee", "1003", "", "", "", "", "", "", "Y"}, records[3])
}

func TestRun_JunkAfterRootElementIsParseFailure(t *testing.T) {
	fs := newFS(t, map[string]string{
		"a.xml": oneIndividual,
		"b.xml": twoIndividuals + "<IAPDIndividualReport/>",
	})

	report, err := New(fs).Run(context.Background(), "xml", "output.csv")
	require.NoError(t, err)

	require.Len(t, report.Files, 2)
	assert.Equal(t, StatusParseFailed, report.Files[1].Status)
	assert.Zero(t, report.Files[1].Rows)
	assert.Equal(t, 1, report.TotalRows())
	assert.Len(t, readCSV(t, fs, "output.csv"), 2)
}

func TestRun_HeaderFromFirstSuccessfulFile(t *testing.T) {
	fs := newFS(t, map[string]string{
		"a.xml": malformed,
		"b.xml": twoIndividuals,
	})

	report, err := New(fs).Run(context.Background(), "xml", "output.csv")
	require.NoError(t, err)

	records := readCSV(t, fs, "output.csv")
	require.Len(t, records, 3)
	assert.Equal(t, wantHeaders, records[0])
	assert.Equal(t, wantHeaders, report.Headers)
}

func TestRun_LaterFilesDoNotChangeHeader(t *testing.T) {
	fs := newFS(t, map[string]string{
		"a.xml": twoIndividuals,
		"b.xml": otherInfoKeys,
	})

	report, err := New(fs).Run(context.Background(), "xml", "output.csv")
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "output.csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, strings.Join(wantHeaders, ","), lines[0])
	assert.Equal(t, "Kim,Bo,2001,,,,,,,", lines[3])

	assert.Equal(t, 1, report.Misaligned())
	assert.Equal(t, 1, report.Files[1].Misaligned)
}

func TestRun_ProcessingFailureIsIsolated(t *testing.T) {
	fs := newFS(t, map[string]string{
		"a.xml": unknownEncoding,
		"b.xml": oneIndividual,
	})
	logger, logs := testutil.NewTestLogger(t)

	report, err := New(fs, WithLogger(logger)).Run(context.Background(), "xml", "output.csv")
	require.NoError(t, err)

	require.Len(t, report.Files, 2)
	assert.Equal(t, StatusFailed, report.Files[0].Status)
	assert.Equal(t, StatusOK, report.Files[1].Status)
	testutil.AssertLogContains(t, logs, slog.LevelError, "Error processing XML file")
	assert.Len(t, readCSV(t, fs, "output.csv"), 2)
}

func TestRun_OnlyXMLFilesAreRead(t *testing.T) {
	fs := newFS(t, map[string]string{
		"a.xml":     oneIndividual,
		"notes.txt": malformed,
		"b.XML":     twoIndividuals,
	})
	require.NoError(t, fs.MkdirAll("xml/nested.xml", 0755))

	report, err := New(fs).Run(context.Background(), "xml", "output.csv")
	require.NoError(t, err)

	require.Len(t, report.Files, 1)
	assert.Equal(t, "a.xml", report.Files[0].Name)
}

func TestRun_EmptyDirectoryCreatesEmptyFile(t *testing.T) {
	fs := newFS(t, nil)
	obs := &recordingObserver{}

	report, err := New(fs, WithObserver(obs), WithBOM(true)).Run(context.Background(), "xml", "output.csv")
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "output.csv")
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Nil(t, report.Headers)
	assert.Equal(t, []string{"done"}, obs.events)
}

func TestRun_AllFilesFailCreatesEmptyFile(t *testing.T) {
	fs := newFS(t, map[string]string{"a.xml": malformed})

	report, err := New(fs).Run(context.Background(), "xml", "output.csv")
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "output.csv")
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Len(t, report.Failed(), 1)
}

func TestRun_MissingInputDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()

	report, err := New(fs).Run(context.Background(), "xml", "output.csv")
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))

	exists, err := afero.Exists(fs, "output.csv")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRun_InputPathIsAFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "xml", []byte(oneIndividual), 0644))

	_, err := New(fs).Run(context.Background(), "xml", "output.csv")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

	exists, err := afero.Exists(fs, "output.csv")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRun_ObserverAndMetrics(t *testing.T) {
	fs := newFS(t, map[string]string{
		"a.xml": twoIndividuals,
		"b.xml": malformed,
	})
	obs := &recordingObserver{}
	metrics := &recordingMetrics{}

	report, err := New(fs, WithObserver(obs), WithMetrics(metrics)).Run(context.Background(), "xml", "output.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"start a.xml", "finish a.xml", "start b.xml", "finish b.xml", "done"}, obs.events)
	assert.Same(t, report, obs.finished)
	assert.Equal(t, []recordedMetric{
		{string(StatusOK), 2},
		{string(StatusParseFailed), 0},
	}, metrics.observed)
}

func TestRun_BOM(t *testing.T) {
	fs := newFS(t, map[string]string{"a.xml": oneIndividual})

	_, err := New(fs, WithBOM(true)).Run(context.Background(), "xml", "output.csv")
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "output.csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\xEF\xBB\xBFname,crd,"))
}

func TestRun_XLSXCompanion(t *testing.T) {
	fs := newFS(t, map[string]string{
		"a.xml": twoIndividuals,
		"b.xml": oneIndividual,
	})
	require.NoError(t, afero.WriteFile(fs, "output.xlsx", []byte("existing"), 0644))

	report, err := New(fs, WithXLSX(true)).Run(context.Background(), "xml", "output.csv")
	require.NoError(t, err)
	assert.Equal(t, "output_01.xlsx", report.XLSXPath)

	data, err := afero.ReadFile(fs, report.XLSXPath)
	require.NoError(t, err)
	book, err := excelize.OpenReader(strings.NewReader(string(data)))
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows("Individuals")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, wantHeaders, rows[0])
	assert.Equal(t, "Ann Lee", rows[3][0])
}

func TestRun_CancelledContext(t *testing.T) {
	fs := newFS(t, map[string]string{"a.xml": oneIndividual})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := New(fs).Run(ctx, "xml", "output.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, report)
	assert.Empty(t, report.Files)
}

func TestResolveOutputPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := New(fs)

	path, err := d.ResolveOutputPath("output.csv")
	require.NoError(t, err)
	assert.Equal(t, "output.csv", path)

	require.NoError(t, afero.WriteFile(fs, "output.csv", nil, 0644))
	require.NoError(t, afero.WriteFile(fs, "output_01.csv", nil, 0644))

	path, err = d.ResolveOutputPath("output.csv")
	require.NoError(t, err)
	assert.Equal(t, "output_02.csv", path)
}
