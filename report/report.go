// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package report

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"
	"text/template"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/danielhkuo/councilvote/models"
	"github.com/danielhkuo/councilvote/session"
)

// Kind selects which document Compile produces.
type Kind string

const (
	KindProtocol   Kind = "protocol"
	KindAttendance Kind = "attendance"
)

// Kinds lists every report produced at the end of a session.
var Kinds = []Kind{KindProtocol, KindAttendance}

var ErrUnknownKind = errors.New("unknown report kind")

// ParseKind accepts a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindProtocol, KindAttendance:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Artifact is a rendered document ready to be sent or served.
type Artifact struct {
	Name        string
	ContentType string
	Body        []byte
}

// Source is the read side the compiler needs. session.Controller implements it.
type Source interface {
	GetSession(ctx context.Context, code int) (models.Session, error)
	GetFinalTally(ctx context.Context, code int) (models.FinalTally, error)
	GetParticipantsWithNames(ctx context.Context, code int) ([]models.Participant, error)
	GetCouncilInfo(ctx context.Context, adminID int64) (models.CouncilInfo, error)
	GetNameForm(ctx context.Context, adminID int64, name string) (models.NameForm, error)
}

// Placeholders printed where the admin has not filled in the council profile.
const (
	blankLong   = "______________________________"
	blankMedium = "_______________"
	blankShort  = "____"
)

const contentType = "text/plain; charset=utf-8"

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).ParseFS(templateFS, "templates/*.tmpl"))

type Compiler struct {
	src    Source
	logger *slog.Logger
}

func NewCompiler(src Source, logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{src: src, logger: logger}
}

// Compile renders one report for the session.
func (c *Compiler) Compile(ctx context.Context, code int, kind Kind) (Artifact, error) {
	switch kind {
	case KindProtocol:
		return c.protocol(ctx, code)
	case KindAttendance:
		return c.attendance(ctx, code)
	}
	return Artifact{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// CompileAll renders every kind in Kinds order.
func (c *Compiler) CompileAll(ctx context.Context, code int) ([]Artifact, error) {
	out := make([]Artifact, 0, len(Kinds))
	for _, k := range Kinds {
		a, err := c.Compile(ctx, code, k)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// header holds the fields shared by both documents.
type header struct {
	Number      string
	SessionType string
	Council     string
	City        string
	Region      string
	Chair       string
	Secretary   string
	Date        string
	stamp       string
}

func (c *Compiler) header(ctx context.Context, sess models.Session) (header, error) {
	info, err := c.src.GetCouncilInfo(ctx, sess.AdminID)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return header{}, err
	}
	return header{
		Number:      orBlank(sess.ProtocolNumber, blankShort),
		SessionType: orBlank(sess.SessionType, blankMedium),
		Council:     orBlank(councilGenitive(info.Name), blankLong),
		City:        orBlank(info.City, blankMedium),
		Region:      info.Region,
		Chair:       orBlank(info.Chair, blankLong),
		Secretary:   orBlank(info.Secretary, blankLong),
		Date:        sess.CreatedAt.Format("2 January 2006"),
		stamp:       sess.CreatedAt.Format("2006_01_02_15_04"),
	}, nil
}

type protocolItem struct {
	models.QuestionTally
	Proposal   string
	Resolution string
}

type protocolData struct {
	header
	Present      int
	Items        []protocolItem
	MiscPosition int
}

func (c *Compiler) protocol(ctx context.Context, code int) (Artifact, error) {
	sess, err := c.src.GetSession(ctx, code)
	if err != nil {
		return Artifact{}, err
	}
	h, err := c.header(ctx, sess)
	if err != nil {
		return Artifact{}, err
	}
	final, err := c.src.GetFinalTally(ctx, code)
	if err != nil {
		return Artifact{}, err
	}

	items := make([]protocolItem, len(final.Questions))
	for i, q := range final.Questions {
		q.Proposer = c.proposer(ctx, sess.AdminID, q.Proposer)
		items[i] = protocolItem{QuestionTally: q, Proposal: proposal(q.Description), Resolution: resolution(q)}
	}

	data := protocolData{
		header:       h,
		Present:      final.Participants,
		Items:        items,
		MiscPosition: len(items) + 1,
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "protocol.tmpl", data); err != nil {
		return Artifact{}, fmt.Errorf("render protocol: %w", err)
	}

	c.logger.Info("report compiled", "session_code", code, "kind", KindProtocol)
	return Artifact{
		Name:        fmt.Sprintf("%s_Protocol_%s.txt", h.stamp, fileSafe(sess.ProtocolNumber)),
		ContentType: contentType,
		Body:        buf.Bytes(),
	}, nil
}

type attendanceData struct {
	header
	Participants []models.Participant
}

func (c *Compiler) attendance(ctx context.Context, code int) (Artifact, error) {
	sess, err := c.src.GetSession(ctx, code)
	if err != nil {
		return Artifact{}, err
	}
	h, err := c.header(ctx, sess)
	if err != nil {
		return Artifact{}, err
	}
	participants, err := c.src.GetParticipantsWithNames(ctx, code)
	if err != nil {
		return Artifact{}, err
	}

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	if err := templates.ExecuteTemplate(tw, "attendance.tmpl", attendanceData{header: h, Participants: participants}); err != nil {
		return Artifact{}, fmt.Errorf("render attendance: %w", err)
	}
	if err := tw.Flush(); err != nil {
		return Artifact{}, fmt.Errorf("render attendance: %w", err)
	}

	c.logger.Info("report compiled", "session_code", code, "kind", KindAttendance)
	return Artifact{
		Name:        fmt.Sprintf("%s_Attendance_%s.txt", h.stamp, fileSafe(sess.ProtocolNumber)),
		ContentType: contentType,
		Body:        buf.Bytes(),
	}, nil
}

// proposer prefers the admin's cached genitive form of the name.
func (c *Compiler) proposer(ctx context.Context, adminID int64, name string) string {
	if name == "" {
		return blankMedium
	}
	nf, err := c.src.GetNameForm(ctx, adminID, name)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			c.logger.Warn("failed to load name form", "admin_id", adminID, "error", err)
		}
		return name
	}
	return nf.Genitive
}

func resolution(q models.QuestionTally) string {
	text := capitalize(strings.TrimSpace(q.Description))
	if q.Decision != models.DecisionAdopted {
		return "Not adopted: " + text
	}
	return text
}

var (
	lowerUK = cases.Lower(language.Ukrainian)
	titleUK = cases.Title(language.Ukrainian, cases.NoLower)
)

// councilGenitive puts a leading "Молодіжна рада" into the genitive case, as
// it appears after "meeting of". Other names are returned unchanged.
func councilGenitive(name string) string {
	const nominative = "молодіжна рада"
	name = strings.TrimSpace(name)
	if !strings.HasPrefix(lowerUK.String(name), nominative) {
		return name
	}
	rest := strings.TrimSpace(string([]rune(name)[utf8.RuneCountInString(nominative):]))
	if rest == "" {
		return "Молодіжної ради"
	}
	return "Молодіжної ради " + rest
}

// capitalize upper-cases the first word's first letter only.
func capitalize(s string) string {
	first, rest, _ := strings.Cut(s, " ")
	if first == "" {
		return s
	}
	r, _ := utf8.DecodeRuneInString(first)
	if !unicode.IsLower(r) {
		return s
	}
	first = titleUK.String(first)
	if rest == "" {
		return first
	}
	return first + " " + rest
}

func orBlank(s, blank string) string {
	if s = strings.TrimSpace(s); s == "" {
		return blank
	}
	return s
}

// fileSafe keeps protocol numbers usable in file names.
func fileSafe(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "draft"
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			return r
		}
		return '_'
	}, s)
}
