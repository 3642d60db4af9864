package fetch

import (
	"net/http/cookiejar"
	"time"

	"beanscout-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	browser "github.com/EDDYCJY/fake-useragent"
	"github.com/go-resty/resty/v2"
	"github.com/mazen160/go-random"
	"golang.org/x/time/rate"
)

type Options struct {
	// zero means no base url restriction
	BaseUrl string
	Timeout time.Duration
	// capped exponential backoff, zero disables retries
	RetryCount int
	// requests per second against the remote host, zero means unlimited
	RequestsPerSecond float64
	TracerName        string
}

// NewClient builds a resty client hardened for scraping third-party
// storefronts: cookie jar, cloudflare bypass transport, rotated browser
// user agent, bounded timeout and capped retries with jitter.
func NewClient(opts Options) *resty.Client {
	client := resty.New()
	if opts.BaseUrl != "" {
		client.SetBaseURL(opts.BaseUrl)
	}

	jar, err := cookiejar.New(nil)
	if err == nil {
		client.SetCookieJar(jar)
	}
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", browser.Chrome())

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	client.SetTimeout(timeout)

	if opts.RetryCount > 0 {
		client.SetRetryCount(opts.RetryCount)
		client.SetRetryWaitTime(time.Millisecond * 500)
		client.SetRetryMaxWaitTime(time.Second * 8)
		client.SetRetryAfter(func(cli *resty.Client, res *resty.Response) (time.Duration, error) {
			attempt := res.Request.Attempt
			backoff := time.Millisecond * 500 * time.Duration(1<<uint(attempt))
			if backoff > time.Second*8 {
				backoff = time.Second * 8
			}
			jitter, err := random.IntRange(0, 250)
			if err != nil {
				jitter = 0
			}
			return backoff + time.Millisecond*time.Duration(jitter), nil
		})
	}

	if opts.RequestsPerSecond > 0 {
		limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		client.OnBeforeRequest(func(cli *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	tracerName := opts.TracerName
	if tracerName == "" {
		tracerName = "beanscout.lib.fetch"
	}
	telemetry.InstrumentResty(client, tracerName)

	return client
}
