// Package core implements the low-level Moodle LMS client: cookie
// session, form login and the ajax service endpoint. Higher layers pair
// its course list with portal grades so the dashboard can link the two.
package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	"gradeway-backend/lib/htmlutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

var LoginFailed = fmt.Errorf("Failed to login to your account.")

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client
	Sesskey string
}

type ClientOptions struct {
	BaseUrl string
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(time.Second * 30)

	instrumentClient(client)

	c := &Client{
		BaseUrl: baseUrl,
		Http:    client,
	}
	return c, nil
}

var moodleConfigRegex = regexp.MustCompile(`(?m)M\.cfg *= *(.+?);`)

func getSesskey(ctx context.Context, doc *goquery.Document) string {
	ctx, span := tracer.Start(ctx, "getSesskey")
	defer span.End()

	for _, script := range doc.Find("script").Nodes {
		text := htmlutil.GetText(script)
		if !strings.HasPrefix(strings.Trim(text, " \t\n"), "//<![CDATA") {
			continue
		}
		groups := moodleConfigRegex.FindStringSubmatch(text)
		if len(groups) < 2 {
			continue
		}

		var cfg struct {
			Sesskey string `json:"sesskey"`
		}
		err := json.Unmarshal([]byte(groups[1]), &cfg)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to unmarshal moodle config")
			return ""
		}
		return cfg.Sesskey
	}

	return ""
}

func (c *Client) DefaultRedirectPolicy() resty.RedirectPolicy {
	return resty.DomainCheckRedirectPolicy(c.BaseUrl.Hostname())
}

func (c *Client) LoginUsernamePassword(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "client:LoginUsernamePassword")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get("/login/index.php")
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login page")
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse login page html")
		return err
	}

	logintoken := doc.Find("input[name=logintoken]").AttrOr("value", "")
	if logintoken == "" {
		span.SetStatus(codes.Error, "failed to find login token")
		return fmt.Errorf("could not find login token")
	}

	res, err = c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"logintoken": logintoken,
			"username":   username,
			"password":   password,
		}).
		Post("/login/index.php")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make login request")
		return err
	}

	res, err = c.Http.R().
		SetContext(ctx).
		Get("/")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to request dashboard after login")
		return err
	}
	doc, err = goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse dashboard html")
		return err
	}

	if len(doc.Find("div.usermenu span.login").Nodes) > 0 {
		span.SetStatus(codes.Error, LoginFailed.Error())
		return LoginFailed
	}

	c.Sesskey = getSesskey(ctx, doc)
	return nil
}

type Course struct {
	Id       int64  `json:"id"`
	Fullname string `json:"fullname"`
	ViewUrl  string `json:"viewurl"`
}

// ListCourses returns the user's enrolled courses via the ajax service
// endpoint, which needs the sesskey scraped during login.
func (c *Client) ListCourses(ctx context.Context) ([]Course, error) {
	ctx, span := tracer.Start(ctx, "client:ListCourses")
	defer span.End()

	if c.Sesskey == "" {
		return nil, fmt.Errorf("no session key, login first")
	}

	body := []map[string]any{{
		"index":      0,
		"methodname": "core_course_get_enrolled_courses_by_timeline_classification",
		"args": map[string]any{
			"classification": "all",
			"limit":          0,
			"offset":         0,
		},
	}}
	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParam("sesskey", c.Sesskey).
		SetHeader("content-type", "application/json").
		SetBody(body).
		Post("/lib/ajax/service.php")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to call ajax service")
		return nil, err
	}

	var out []struct {
		Error bool `json:"error"`
		Data  struct {
			Courses []Course `json:"courses"`
		} `json:"data"`
	}
	err = json.Unmarshal(res.Body(), &out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to unmarshal course list")
		return nil, err
	}
	if len(out) == 0 || out[0].Error {
		return nil, fmt.Errorf("the course list request was rejected")
	}
	return out[0].Data.Courses, nil
}
