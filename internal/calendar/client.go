package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/humorloos/feierabend/internal/google"
	"github.com/humorloos/feierabend/internal/instrumentation"
	"github.com/humorloos/feierabend/internal/logging"
)

const defaultSearchHorizonDays = 14

// Service wraps the Google Calendar API for one account.
type Service struct {
	svc         *calendar.Service
	account     string
	tokens      google.TokenProvider
	dayStart    TimeOfDay
	horizonDays int
	metrics     *instrumentation.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithDayStart sets the earliest wall-clock time considered for event
// placement on any day.
func WithDayStart(t TimeOfDay) Option {
	return func(s *Service) { s.dayStart = t }
}

// WithSearchHorizon sets how many days ahead the free-window search looks.
func WithSearchHorizon(days int) Option {
	return func(s *Service) { s.horizonDays = days }
}

// WithMetrics attaches a metrics recorder to every API call.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTokenProvider overrides the file-based token provider.
func WithTokenProvider(p google.TokenProvider) Option {
	return func(s *Service) { s.tokens = p }
}

// NewServiceForAccount creates a calendar service authenticated with a
// token from the service's token provider, by default the stored token
// file for the given account.
func NewServiceForAccount(ctx context.Context, account string, opts ...Option) (*Service, error) {
	s := newService(nil, account, opts...)

	client, err := google.GetHTTPClient(ctx, s.tokens, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get HTTP client for account %s: %w", account, err)
	}

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	s.svc = svc

	return s, nil
}

func newService(svc *calendar.Service, account string, opts ...Option) *Service {
	s := &Service{
		svc:         svc,
		account:     account,
		tokens:      google.NewFileTokenProvider(),
		dayStart:    TimeOfDay{Hour: 9},
		horizonDays: defaultSearchHorizonDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// record reports the duration and status of one API operation.
func (s *Service) record(ctx context.Context, op string, started time.Time, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	s.metrics.RecordCalendarOperation(ctx, op, status, time.Since(started))
}

// DeltaOptions parametrizes one FetchDelta call. SyncToken and Query are
// mutually exclusive on the API: incremental fetches must not carry a query.
type DeltaOptions struct {
	SyncToken string
	Query     string
	TimeMin   time.Time
	TimeMax   time.Time
}

// FetchDelta lists events on a calendar, following all result pages, and
// returns them together with the next sync token. An expired sync token is
// handled transparently by falling back to a full fetch.
func (s *Service) FetchDelta(ctx context.Context, calendarID string, opts DeltaOptions) (*Delta, error) {
	started := time.Now()
	delta, err := s.fetchDelta(ctx, calendarID, opts)
	if isSyncTokenExpired(err) && opts.SyncToken != "" {
		slog.Warn("Sync token expired, performing full fetch",
			logging.Calendar(calendarID))
		opts.SyncToken = ""
		delta, err = s.fetchDelta(ctx, calendarID, opts)
	}
	s.record(ctx, "list", started, err)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events for calendar %s: %w", calendarID, err)
	}
	return delta, nil
}

func (s *Service) fetchDelta(ctx context.Context, calendarID string, opts DeltaOptions) (*Delta, error) {
	delta := &Delta{}
	pageToken := ""

	for {
		call := s.svc.Events.List(calendarID).Context(ctx).SingleEvents(true)
		if opts.SyncToken != "" {
			call = call.SyncToken(opts.SyncToken)
		}
		if opts.Query != "" {
			call = call.Q(opts.Query)
		}
		if !opts.TimeMin.IsZero() {
			call = call.TimeMin(opts.TimeMin.Format(time.RFC3339))
		}
		if !opts.TimeMax.IsZero() {
			call = call.TimeMax(opts.TimeMax.Format(time.RFC3339))
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		res, err := call.Do()
		if err != nil {
			return nil, err
		}

		for _, item := range res.Items {
			delta.Events = append(delta.Events, toEvent(item))
		}
		if res.NextSyncToken != "" {
			delta.NextSyncToken = res.NextSyncToken
		}
		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}

	return delta, nil
}

// isSyncTokenExpired reports whether the API rejected a stale sync token.
func isSyncTokenExpired(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusGone
}

// CreateEvent inserts a new event into the calendar.
func (s *Service) CreateEvent(ctx context.Context, calendarID string, event Event) (*Event, error) {
	started := time.Now()
	created, err := s.svc.Events.Insert(calendarID, apiEvent(event)).Context(ctx).Do()
	s.record(ctx, "insert", started, err)
	if err != nil {
		return nil, fmt.Errorf("failed to create event in calendar %s: %w", calendarID, err)
	}

	result := toEvent(created)
	return &result, nil
}

// UpdateEvent replaces the event with the given ID. The body is a full
// replacement, so cleared optional fields are removed from the event.
func (s *Service) UpdateEvent(ctx context.Context, calendarID, eventID string, event Event) (*Event, error) {
	started := time.Now()
	updated, err := s.svc.Events.Update(calendarID, eventID, apiEvent(event)).Context(ctx).Do()
	s.record(ctx, "update", started, err)
	if err != nil {
		return nil, fmt.Errorf("failed to update event %s in calendar %s: %w", eventID, calendarID, err)
	}

	result := toEvent(updated)
	return &result, nil
}

// DeleteEvent removes the event with the given ID from the calendar.
func (s *Service) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	started := time.Now()
	err := s.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
	s.record(ctx, "delete", started, err)
	if err != nil {
		return fmt.Errorf("failed to delete event %s from calendar %s: %w", eventID, calendarID, err)
	}
	return nil
}

// ListCalendars returns the calendars on the account's calendar list.
func (s *Service) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	started := time.Now()

	var calendars []CalendarInfo
	pageToken := ""
	for {
		call := s.svc.CalendarList.List().Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		res, err := call.Do()
		if err != nil {
			s.record(ctx, "calendarList", started, err)
			return nil, fmt.Errorf("failed to list calendars: %w", err)
		}
		for _, item := range res.Items {
			calendars = append(calendars, CalendarInfo{
				ID:      item.Id,
				Summary: item.Summary,
				Primary: item.Primary,
			})
		}
		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}

	s.record(ctx, "calendarList", started, nil)
	return calendars, nil
}

// Watch opens a web_hook notification channel on the calendar and returns
// the resource ID needed to stop it later.
func (s *Service) Watch(ctx context.Context, calendarID, channelID, address string, ttl time.Duration) (string, error) {
	started := time.Now()

	channel := &calendar.Channel{
		Id:      channelID,
		Type:    "web_hook",
		Address: address,
		Params: map[string]string{
			"ttl": fmt.Sprintf("%d", int64(ttl.Seconds())),
		},
	}

	res, err := s.svc.Events.Watch(calendarID, channel).Context(ctx).Do()
	s.record(ctx, "watch", started, err)
	if err != nil {
		return "", fmt.Errorf("failed to watch calendar %s: %w", calendarID, err)
	}
	return res.ResourceId, nil
}

// StopChannel closes a notification channel.
func (s *Service) StopChannel(ctx context.Context, channelID, resourceID string) error {
	started := time.Now()
	err := s.svc.Channels.Stop(&calendar.Channel{Id: channelID, ResourceId: resourceID}).Context(ctx).Do()
	s.record(ctx, "stop", started, err)
	if err != nil {
		return fmt.Errorf("failed to stop channel %s: %w", channelID, err)
	}
	return nil
}

// FindFreeWindow returns the earliest start at or after earliest where a
// block of the given duration fits between the day start and the cutoff
// without overlapping busy time on any of the given calendars. The search
// covers the configured horizon.
func (s *Service) FindFreeWindow(ctx context.Context, calendarIDs []string, earliest time.Time, duration time.Duration, cutoff TimeOfDay) (time.Time, error) {
	horizon := earliest.AddDate(0, 0, s.horizonDays)

	busy, err := s.queryFreeBusy(ctx, calendarIDs, earliest, horizon)
	if err != nil {
		return time.Time{}, err
	}

	start, ok := findWindow(mergeRanges(busy), earliest, duration, s.dayStart, cutoff, horizon)
	if !ok {
		return time.Time{}, fmt.Errorf("no free window of %s found within %d days after %s",
			duration, s.horizonDays, earliest.Format(time.RFC3339))
	}
	return start, nil
}

// queryFreeBusy fetches busy ranges across all given calendars.
func (s *Service) queryFreeBusy(ctx context.Context, calendarIDs []string, timeMin, timeMax time.Time) ([]TimeRange, error) {
	started := time.Now()

	items := make([]*calendar.FreeBusyRequestItem, 0, len(calendarIDs))
	for _, id := range calendarIDs {
		items = append(items, &calendar.FreeBusyRequestItem{Id: id})
	}

	req := &calendar.FreeBusyRequest{
		TimeMin: timeMin.Format(time.RFC3339),
		TimeMax: timeMax.Format(time.RFC3339),
		Items:   items,
	}

	res, err := s.svc.Freebusy.Query(req).Context(ctx).Do()
	s.record(ctx, "freebusy", started, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query free/busy: %w", err)
	}

	var busy []TimeRange
	for calID, cal := range res.Calendars {
		for _, period := range cal.Busy {
			start, err := time.Parse(time.RFC3339, period.Start)
			if err != nil {
				slog.Warn("Skipping unparseable busy period",
					logging.Calendar(calID), logging.Err(err))
				continue
			}
			end, err := time.Parse(time.RFC3339, period.End)
			if err != nil {
				slog.Warn("Skipping unparseable busy period",
					logging.Calendar(calID), logging.Err(err))
				continue
			}
			busy = append(busy, TimeRange{Start: start.Local(), End: end.Local()})
		}
	}
	return busy, nil
}
