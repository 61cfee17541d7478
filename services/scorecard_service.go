package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	config "github.com/anjiri1684/mock_exams/configs"
	"github.com/anjiri1684/mock_exams/logger"
	"github.com/anjiri1684/mock_exams/models"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var scorecardTemplate = template.Must(template.New("scorecard").
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.TestTitle}}</title>
<style>
body{font-family:Helvetica,Arial,sans-serif;margin:40px;color:#222}
table{border-collapse:collapse;width:100%}
td,th{border:1px solid #ccc;padding:6px;text-align:left}
.ok{color:#1a7f37}.miss{color:#cf222e}
</style></head>
<body>
<h1>{{.TestTitle}}</h1>
<p>{{.StudentName}} &middot; completed {{.CompletedAt}}</p>
<h2>Score: {{.Score}} / {{.TotalMarks}}</h2>
<table>
<tr><th>#</th><th>Question</th><th>Your answer</th><th>Correct answer</th><th>Marks</th></tr>
{{range $i, $r := .Rows}}<tr>
<td>{{inc $i}}</td><td>{{$r.Question}}</td>
<td class="{{if $r.Correct}}ok{{else}}miss{{end}}">{{if $r.Answered}}{{$r.Submitted}}{{else}}&mdash;{{end}}</td>
<td>{{$r.CorrectAnswer}}</td><td>{{$r.Earned}} / {{$r.Points}}</td>
</tr>{{end}}
</table>
</body></html>`))

type scorecardRow struct {
	Question      string
	Submitted     string
	Answered      bool
	CorrectAnswer string
	Correct       bool
	Points        int
	Earned        int
}

type scorecardData struct {
	TestTitle   string
	StudentName string
	CompletedAt string
	Score       int
	TotalMarks  int
	Rows        []scorecardRow
}

// PDF rendering and storage are swapped out in tests.
var (
	printPDF  = generatePDFFromHTML
	uploadPDF = uploadToCloudinary
)

func buildScorecard(attempt *models.Attempt, questions []models.Question) scorecardData {
	answers := attempt.Answers.Data()
	data := scorecardData{
		TestTitle:   attempt.Test.Title,
		StudentName: attempt.User.FullName,
		CompletedAt: attempt.CompletedAt.Format("January 2, 2006 15:04 MST"),
		Score:       attempt.Score,
	}
	for _, q := range questions {
		submitted, answered := answers[q.ID.String()]
		row := scorecardRow{
			Question:      q.QuestionText,
			Submitted:     submitted,
			Answered:      answered,
			CorrectAnswer: q.CorrectAnswer,
			Correct:       answered && submitted == q.CorrectAnswer,
			Points:        q.Points(),
		}
		if row.Correct {
			row.Earned = row.Points
		}
		data.TotalMarks += row.Points
		data.Rows = append(data.Rows, row)
	}
	return data
}

func renderScorecardHTML(data scorecardData) (string, error) {
	var out bytes.Buffer
	if err := scorecardTemplate.Execute(&out, data); err != nil {
		return "", err
	}
	return out.String(), nil
}

// GenerateScorecard renders an attempt's result to PDF and stores it once per attempt.
// Only the attempt's owner may request it.
func GenerateScorecard(ctx context.Context, db *gorm.DB, attemptID, userID uuid.UUID) (*models.Scorecard, error) {
	attempt, err := GetAttemptByID(db, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, errors.Wrap(ErrNotFound, "attempt")
	}

	var existing models.Scorecard
	err = db.Take(&existing, "attempt_id = ?", attemptID).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, dbError(err, "scorecard")
	}
	questions, err := ListQuestions(db, attempt.TestID)
	if err != nil {
		return nil, err
	}

	html, err := renderScorecardHTML(buildScorecard(attempt, questions))
	if err != nil {
		return nil, errors.Wrap(err, "render scorecard")
	}
	pdf, err := printPDF(ctx, html)
	if err != nil {
		return nil, errors.Wrap(err, "print scorecard")
	}
	url, err := uploadPDF(ctx, pdf, attempt.ID.String())
	if err != nil {
		return nil, errors.Wrap(err, "upload scorecard")
	}

	card := models.Scorecard{AttemptID: attempt.ID, FileURL: url}
	if err := db.Create(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if err := db.Take(&card, "attempt_id = ?", attempt.ID).Error; err == nil {
				return &card, nil
			}
		}
		return nil, dbError(err, "scorecard")
	}
	logger.Log.Info("scorecard generated", "attempt_id", attempt.ID, "url", url)
	return &card, nil
}

func generatePDFFromHTML(ctx context.Context, htmlContent string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, 30*time.Second)
	defer cancelTimeout()

	var pdfBuffer []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuffer, nil
}

func uploadToCloudinary(ctx context.Context, fileBytes []byte, attemptID string) (string, error) {
	cld, err := cloudinary.NewFromURL(config.Config("CLOUDINARY_URL"))
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	uploadParams := uploader.UploadParams{
		PublicID:     fmt.Sprintf("scorecard_%s", attemptID),
		Folder:       "mock_exam_scorecards",
		ResourceType: "raw",
	}

	uploadResult, err := cld.Upload.Upload(ctx, bytes.NewReader(fileBytes), uploadParams)
	if err != nil {
		return "", err
	}
	return uploadResult.SecureURL, nil
}
