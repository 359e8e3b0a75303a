package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gfdmit/yatube/internal/model"
	"github.com/gfdmit/yatube/internal/paginator"
	"github.com/gfdmit/yatube/internal/service"
)

var (
	errUsage = errors.New("usage")

	// errRejected is returned after printing a form that failed validation
	// or a redirect that refused the action.
	errRejected = errors.New("request rejected")
)

type cli struct {
	svc *service.Service
	out io.Writer
}

type handler func(c *cli, ctx context.Context, args []string) error

var commands = map[string]handler{
	"migrate":     (*cli).migrate,
	"feed":        (*cli).feed,
	"user add":    (*cli).userAdd,
	"group add":   (*cli).groupAdd,
	"group rm":    (*cli).groupRm,
	"group ls":    (*cli).groupLs,
	"post add":    (*cli).postAdd,
	"post edit":   (*cli).postEdit,
	"post show":   (*cli).postShow,
	"comment add": (*cli).commentAdd,
}

// run executes one command line against svc and writes its JSON result to out.
func run(ctx context.Context, svc *service.Service, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	c := &cli{svc: svc, out: out}

	if h, ok := commands[args[0]]; ok {
		return h(c, ctx, args[1:])
	}
	if len(args) > 1 {
		if h, ok := commands[args[0]+" "+args[1]]; ok {
			return h(c, ctx, args[2:])
		}
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, strings.Join(args, " "))
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	return nil
}

func (c *cli) migrate(_ context.Context, _ []string) error {
	// storage is migrated when the app starts
	return c.print(map[string]string{"status": "migrated"})
}

func (c *cli) userAdd(ctx context.Context, args []string) error {
	fs := newFlags("user add")
	username := fs.String("username", "", "")
	if err := parse(fs, args); err != nil {
		return err
	}

	u, err := c.svc.RegisterUser(ctx, *username)
	if err != nil {
		return err
	}
	return c.print(u)
}

func (c *cli) groupAdd(ctx context.Context, args []string) error {
	fs := newFlags("group add")
	var in service.GroupInput
	fs.StringVar(&in.Title, "title", "", "")
	fs.StringVar(&in.Slug, "slug", "", "")
	fs.StringVar(&in.Description, "description", "", "")
	if err := parse(fs, args); err != nil {
		return err
	}

	out, err := c.svc.CreateGroup(ctx, in)
	if err != nil {
		return err
	}
	if err := c.print(out); err != nil {
		return err
	}
	if out.Invalid() {
		return errRejected
	}
	return nil
}

func (c *cli) groupRm(ctx context.Context, args []string) error {
	fs := newFlags("group rm")
	slug := fs.String("slug", "", "")
	if err := parse(fs, args); err != nil {
		return err
	}

	if err := c.svc.DeleteGroup(ctx, *slug); err != nil {
		return err
	}
	return c.print(map[string]string{"deleted": *slug})
}

func (c *cli) groupLs(ctx context.Context, _ []string) error {
	groups, err := c.svc.Groups(ctx)
	if err != nil {
		return err
	}
	return c.print(groups)
}

type postFlags struct {
	as    string
	text  string
	group int64
	image string
}

func (p *postFlags) bind(fs *flag.FlagSet) {
	fs.StringVar(&p.as, "as", "", "username of the acting user; empty is anonymous")
	fs.StringVar(&p.text, "text", "", "")
	fs.Int64Var(&p.group, "group", 0, "group id, 0 for none")
	fs.StringVar(&p.image, "image", "", "image file to upload")
}

func (p *postFlags) input() (service.PostInput, func() error, error) {
	in := service.PostInput{Text: p.text}
	if p.group != 0 {
		in.GroupID = &p.group
	}
	if p.image == "" {
		return in, func() error { return nil }, nil
	}

	upload, err := openImage(p.image)
	if err != nil {
		return in, nil, err
	}
	in.Upload = upload
	return in, upload.Body.(io.Closer).Close, nil
}

// openImage sniffs the content type from the file's first bytes, falling back
// to its extension.
func openImage(path string) (*model.ImageUpload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat image: %w", err)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		f.Close()
		return nil, fmt.Errorf("read image: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("rewind image: %w", err)
	}

	contentType := http.DetectContentType(head[:n])
	if contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
			contentType = byExt
		}
	}

	return &model.ImageUpload{
		Filename:    filepath.Base(path),
		ContentType: contentType,
		Size:        info.Size(),
		Body:        f,
	}, nil
}

func (c *cli) postAdd(ctx context.Context, args []string) error {
	fs := newFlags("post add")
	var pf postFlags
	pf.bind(fs)
	if err := parse(fs, args); err != nil {
		return err
	}

	actor, err := c.svc.Identify(ctx, pf.as)
	if err != nil {
		return err
	}
	in, closeImage, err := pf.input()
	if err != nil {
		return err
	}
	defer closeImage()

	out, err := c.svc.CreatePost(ctx, actor, in)
	if err != nil {
		return err
	}
	return c.printPost(out)
}

func (c *cli) postEdit(ctx context.Context, args []string) error {
	fs := newFlags("post edit")
	var pf postFlags
	pf.bind(fs)
	id := fs.Int64("id", 0, "")
	if err := parse(fs, args); err != nil {
		return err
	}

	actor, err := c.svc.Identify(ctx, pf.as)
	if err != nil {
		return err
	}
	in, closeImage, err := pf.input()
	if err != nil {
		return err
	}
	defer closeImage()

	out, err := c.svc.EditPost(ctx, actor, *id, in)
	if err != nil {
		return err
	}
	return c.printPost(out)
}

func (c *cli) printPost(out service.PostOutcome) error {
	if err := c.print(out); err != nil {
		return err
	}
	if out.Invalid() || out.Redirect.Reason == service.ReasonForbiddenEdit {
		return errRejected
	}
	return nil
}

func (c *cli) postShow(ctx context.Context, args []string) error {
	fs := newFlags("post show")
	id := fs.Int64("id", 0, "")
	if err := parse(fs, args); err != nil {
		return err
	}

	detail, err := c.svc.GetPost(ctx, *id)
	if err != nil {
		return err
	}
	return c.print(detail)
}

func (c *cli) commentAdd(ctx context.Context, args []string) error {
	fs := newFlags("comment add")
	as := fs.String("as", "", "")
	postID := fs.Int64("post", 0, "")
	text := fs.String("text", "", "")
	if err := parse(fs, args); err != nil {
		return err
	}

	actor, err := c.svc.Identify(ctx, *as)
	if err != nil {
		return err
	}
	out, err := c.svc.AddComment(ctx, actor, *postID, service.CommentInput{Text: *text})
	if err != nil {
		return err
	}
	if err := c.print(out); err != nil {
		return err
	}
	if out.Invalid() {
		return errRejected
	}
	return nil
}

type feedLine struct {
	ID      int64  `json:"id"`
	Excerpt string `json:"excerpt"`
	Author  string `json:"author"`
	Group   string `json:"group,omitempty"`
	PubDate string `json:"pub_date"`
}

type feedResult struct {
	Group      *model.Group `json:"group,omitempty"`
	Author     *model.User  `json:"author,omitempty"`
	Page       int          `json:"page"`
	TotalPages int          `json:"total_pages"`
	Count      int          `json:"count"`
	Next       int          `json:"next,omitempty"`
	Previous   int          `json:"previous,omitempty"`
	Posts      []feedLine   `json:"posts"`
}

func (c *cli) feed(ctx context.Context, args []string) error {
	fs := newFlags("feed")
	group := fs.String("group", "", "group slug")
	author := fs.String("author", "", "username")
	page := fs.String("page", "", "")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *group != "" && *author != "" {
		return fmt.Errorf("%w: feed takes -group or -author, not both", errUsage)
	}

	number := paginator.ParsePage(*page)
	var (
		f   service.Feed
		err error
	)
	switch {
	case *group != "":
		f, err = c.svc.GroupFeed(ctx, *group, number)
	case *author != "":
		f, err = c.svc.Profile(ctx, *author, number)
	default:
		f, err = c.svc.Index(ctx, number)
	}
	if err != nil {
		return err
	}

	res := feedResult{
		Group:      f.Group,
		Author:     f.Author,
		Page:       f.Page.Number,
		TotalPages: f.Page.TotalPages,
		Count:      f.Page.Count,
		Posts:      make([]feedLine, 0, len(f.Page.Items)),
	}
	if f.Page.HasNext {
		res.Next = f.Page.NextNumber()
	}
	if f.Page.HasPrevious {
		res.Previous = f.Page.PreviousNumber()
	}
	for _, p := range f.Page.Items {
		line := feedLine{
			ID:      p.ID,
			Excerpt: p.Excerpt(),
			Author:  p.Author.Username,
			PubDate: p.PubDate.Format("2006-01-02 15:04:05"),
		}
		if p.Group != nil {
			line.Group = p.Group.Slug
		}
		res.Posts = append(res.Posts, line)
	}
	return c.print(res)
}
