// Package main: admin subcommand, a live monitoring table rendered with bubbletea and lipgloss.
package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	admingrpc "github.com/i-melnichenko/kvchan/internal/transport/grpc/admin"
)

const adminRefreshInterval = 500 * time.Millisecond

// ---- Data types -------------------------------------------------------------

type adminConn struct {
	addr string
	conn *grpc.ClientConn
}

type adminRow struct {
	addr         string
	nodeID       string
	uptime       time.Duration
	sessions     int64
	opened       int64
	entries      int64
	usedBuckets  int64
	buckets      int64
	longestChain int64
	maxValueLen  int64
	err          string
}

// ---- Bubbletea messages -----------------------------------------------------

type tickMsg time.Time

type rowsMsg struct {
	rows []adminRow
	ts   time.Time
}

// ---- Lipgloss styles --------------------------------------------------------

type uiStyles struct {
	dotHealthy   lipgloss.Style
	dotUnavail   lipgloss.Style
	dotSelected  lipgloss.Style
	addr         lipgloss.Style
	node         lipgloss.Style
	metric       lipgloss.Style
	sessions     lipgloss.Style
	chainWarn    lipgloss.Style
	timeVal      lipgloss.Style
	tableHeader  lipgloss.Style
	appHeader    lipgloss.Style
	tsStyle      lipgloss.Style
	footer       lipgloss.Style
	divider      lipgloss.Style
	alertsHdr    lipgloss.Style
	errorDot     lipgloss.Style
	errorKindSty lipgloss.Style
	sumDim       lipgloss.Style
	sumHealthy   lipgloss.Style
	sumErrors    lipgloss.Style
	sumSessions  lipgloss.Style
}

var styles = buildStyles()

func buildStyles() uiStyles {
	// "1"=red  "2"=green  "3"=yellow  "5"=magenta  "6"=cyan  "7"=white  "8"=bright-black
	return uiStyles{
		dotHealthy:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		dotUnavail:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		dotSelected:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		addr:         lipgloss.NewStyle().Faint(true).Foreground(lipgloss.Color("6")),
		node:         lipgloss.NewStyle().Bold(true),
		metric:       lipgloss.NewStyle().Faint(true),
		sessions:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5")),
		chainWarn:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
		timeVal:      lipgloss.NewStyle().Faint(true),
		tableHeader:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7")).Background(lipgloss.Color("8")),
		appHeader:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		tsStyle:      lipgloss.NewStyle().Faint(true),
		footer:       lipgloss.NewStyle().Faint(true),
		divider:      lipgloss.NewStyle().Faint(true),
		alertsHdr:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
		errorDot:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		errorKindSty: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		sumDim:       lipgloss.NewStyle().Faint(true),
		sumHealthy:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		sumErrors:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		sumSessions:  lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
	}
}

// ---- Column widths ----------------------------------------------------------

type adminColWidths struct {
	addr int
	node int
}

// Fixed columns: ST(2)+SESS(5)+OPENED(7)+KEYS(7)+BUCKETS(9)+CHAIN(5)+UP(8)+8 spaces.
const adminFixedWidth = 51

// adminColumnsForWidth sizes ADDR and NODE to fill contentWidth.
func adminColumnsForWidth(rows []adminRow, contentWidth int) adminColWidths {
	maxAddr := len("ADDR")
	maxNode := len("NODE")
	for _, r := range rows {
		maxAddr = maxInt(maxAddr, len(r.addr))
		maxNode = maxInt(maxNode, len(r.nodeID))
	}
	col := adminColWidths{
		addr: clampInt(maxAddr, 8, 21),
		node: clampInt(maxNode, 4, 12),
	}

	extra := contentWidth - adminFixedWidth - col.addr - col.node
	if extra < 0 {
		deficit := -extra
		shrink := minInt(deficit, col.addr-4)
		col.addr -= shrink
		deficit -= shrink
		col.node -= minInt(deficit, col.node-4)
	}
	return col
}

// ---- Cell renderers ---------------------------------------------------------

func renderStatusDot(errStr string, selected bool) string {
	if selected {
		return styles.dotSelected.Render("▶") + " "
	}
	if errStr != "" {
		return styles.dotUnavail.Render("●") + " "
	}
	return styles.dotHealthy.Render("●") + " "
}

func renderMetricCell(v int64, width int) string {
	return styles.metric.Render(fmt.Sprintf("%*d", width, v))
}

func renderBucketsCell(used, total int64, width int) string {
	return styles.metric.Render(fmt.Sprintf("%*s", width, fmt.Sprintf("%d/%d", used, total)))
}

// renderChainCell highlights chains long enough to suggest poorly spread keys.
func renderChainCell(chain, entries, buckets int64, width int) string {
	padded := fmt.Sprintf("%*d", width, chain)
	if chainSkewed(chain, entries, buckets) {
		return styles.chainWarn.Render(padded)
	}
	return styles.metric.Render(padded)
}

func chainSkewed(chain, entries, buckets int64) bool {
	if buckets <= 0 || chain < 4 {
		return false
	}
	avg := (entries + buckets - 1) / buckets
	return chain > 4*maxInt64(avg, 1)
}

func makeTableRow(r adminRow, cols adminColWidths, selected bool) string {
	dot := renderStatusDot(r.err, selected)
	addr := styles.addr.Render(fmt.Sprintf("%-*s", cols.addr, shorten(r.addr, cols.addr)))

	if r.err != "" {
		dash := "-"
		return dot + " " + addr +
			" " + fmt.Sprintf("%-*s", cols.node, dash) +
			" " + fmt.Sprintf("%5s", dash) +
			" " + fmt.Sprintf("%7s", dash) +
			" " + fmt.Sprintf("%7s", dash) +
			" " + fmt.Sprintf("%9s", dash) +
			" " + fmt.Sprintf("%5s", dash) +
			" " + fmt.Sprintf("%-8s", dash)
	}

	return dot + " " + addr +
		" " + styles.node.Render(fmt.Sprintf("%-*s", cols.node, shorten(r.nodeID, cols.node))) +
		" " + styles.sessions.Render(fmt.Sprintf("%5d", r.sessions)) +
		" " + renderMetricCell(r.opened, 7) +
		" " + renderMetricCell(r.entries, 7) +
		" " + renderBucketsCell(r.usedBuckets, r.buckets, 9) +
		" " + renderChainCell(r.longestChain, r.entries, r.buckets, 5) +
		" " + styles.timeVal.Render(fmt.Sprintf("%-8s", formatUptime(r.uptime)))
}

func renderHeader(cols adminColWidths, contentWidth int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-2s", "ST")
	fmt.Fprintf(&b, " %-*s", cols.addr, shorten("ADDR", cols.addr))
	fmt.Fprintf(&b, " %-*s", cols.node, shorten("NODE", cols.node))
	fmt.Fprintf(&b, " %5s", "SESS")
	fmt.Fprintf(&b, " %7s", "OPENED")
	fmt.Fprintf(&b, " %7s", "KEYS")
	fmt.Fprintf(&b, " %9s", "BUCKETS")
	fmt.Fprintf(&b, " %5s", "CHAIN")
	fmt.Fprintf(&b, " %-8s", "UP")
	return styles.tableHeader.Width(contentWidth).MaxWidth(contentWidth).Render(b.String())
}

// renderSummary returns the "[N total] [N healthy] ..." line.
func renderSummary(rows []adminRow) string {
	healthy, errorsN := 0, 0
	var sessions int64
	for _, r := range rows {
		if r.err != "" {
			errorsN++
			continue
		}
		healthy++
		sessions += r.sessions
	}
	bracket := func(st lipgloss.Style, label string, n int64) string {
		d := styles.sumDim
		return d.Render("[") + st.Render(fmt.Sprintf("%d", n)) + d.Render(" "+label+"]")
	}
	return strings.Join([]string{
		bracket(lipgloss.NewStyle(), "total", int64(len(rows))),
		bracket(styles.sumHealthy, "healthy", int64(healthy)),
		bracket(styles.sumErrors, "errors", int64(errorsN)),
		bracket(styles.sumSessions, "sessions", sessions),
	}, " ")
}

func buildAlertLines(rows []adminRow, contentWidth int) []string {
	var lines []string
	for _, r := range rows {
		if r.err == "" {
			if chainSkewed(r.longestChain, r.entries, r.buckets) {
				lines = append(lines, fmt.Sprintf("%s %s longest chain %d over %d/%d buckets",
					styles.chainWarn.Render("CHAIN_SKEW"), r.addr, r.longestChain, r.usedBuckets, r.buckets))
			}
			continue
		}
		summary := shorten(errorSummary(r.err), maxInt(20, contentWidth-28))
		lines = append(lines, fmt.Sprintf("%s %s %s %s",
			styles.errorDot.Render("●"),
			r.addr,
			styles.errorKindSty.Render(errorKind(r.err)),
			summary,
		))
	}
	return lines
}

// ---- Bubbletea model --------------------------------------------------------

type adminModel struct {
	rows    []adminRow
	ts      time.Time
	conns   []adminConn
	timeout time.Duration
	width   int
	height  int
	cursor  int
	cols    adminColWidths
}

func newAdminModel(conns []adminConn, timeout time.Duration) adminModel {
	return adminModel{
		conns:   conns,
		timeout: timeout,
		width:   120,
		height:  40,
	}
}

func (m adminModel) Init() tea.Cmd {
	// One poll in flight at a time: rowsMsg schedules the next tick.
	return m.pollCmd()
}

func (m adminModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcCols()
		return m, nil

	case tickMsg:
		return m, m.pollCmd()

	case rowsMsg:
		m.rows = msg.rows
		m.ts = msg.ts
		m.recalcCols()
		if m.cursor >= len(m.rows) {
			m.cursor = maxInt(0, len(m.rows)-1)
		}
		tickFn := func(t time.Time) tea.Msg { return tickMsg(t) }
		return m, tea.Tick(adminRefreshInterval, tickFn)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			m.cursor = clampInt(m.cursor-1, 0, maxInt(0, len(m.rows)-1))
		case "down", "j":
			m.cursor = clampInt(m.cursor+1, 0, maxInt(0, len(m.rows)-1))
		}
	}
	return m, nil
}

func (m adminModel) View() string {
	contentWidth := m.width - 2
	if contentWidth <= 0 {
		contentWidth = 80
	}

	var b strings.Builder
	b.WriteString("  ")
	b.WriteString(styles.appHeader.Render("kvchan nodes"))
	b.WriteString("  ")
	b.WriteString(styles.tsStyle.Render(m.ts.Format(time.RFC3339)))
	b.WriteString("\n")
	b.WriteString(renderSummary(m.rows))
	b.WriteString("\n\n")

	b.WriteString(renderHeader(m.cols, contentWidth))
	b.WriteString("\n")
	for i, r := range m.rows {
		b.WriteString(makeTableRow(r, m.cols, i == m.cursor))
		b.WriteString("\n")
	}

	if m.cursor >= 0 && m.cursor < len(m.rows) && m.rows[m.cursor].err == "" {
		r := m.rows[m.cursor]
		b.WriteString("\n  ")
		b.WriteString(styles.metric.Render(fmt.Sprintf("max value length: %d bytes", r.maxValueLen)))
		b.WriteString("\n")
	}

	if alertLines := buildAlertLines(m.rows, contentWidth); len(alertLines) > 0 {
		b.WriteString(styles.divider.Render(strings.Repeat("-", contentWidth)))
		b.WriteString("\n")
		b.WriteString(styles.alertsHdr.Render("Alerts"))
		b.WriteString("\n")
		for _, line := range alertLines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n  ")
	b.WriteString(styles.footer.Render("q / Ctrl+C to exit"))

	// Pad to terminal height so a shorter frame overwrites stale lines.
	out := b.String()
	if m.height > 0 {
		lines := strings.Split(out, "\n")
		for len(lines) < m.height {
			lines = append(lines, "")
		}
		return strings.Join(lines, "\n")
	}
	return out
}

func (m *adminModel) recalcCols() {
	contentWidth := m.width - 2
	if contentWidth <= 0 {
		contentWidth = 80
	}
	m.cols = adminColumnsForWidth(m.rows, contentWidth)
}

func (m adminModel) pollCmd() tea.Cmd {
	conns := m.conns
	timeout := m.timeout
	return func() tea.Msg {
		rows, ts := pollAdminRows(context.Background(), conns, timeout)
		return rowsMsg{rows: rows, ts: ts}
	}
}

// ---- Commands ---------------------------------------------------------------

func cmdAdmin(addrs []string, timeout time.Duration) error {
	if len(addrs) == 0 {
		return fmt.Errorf("no addresses provided")
	}
	conns, err := openAdminConns(addrs)
	if err != nil {
		return err
	}
	defer closeAdminConns(conns)

	p := tea.NewProgram(newAdminModel(conns, timeout), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func cmdStats(addr string, timeout time.Duration) error {
	conns, err := openAdminConns([]string{addr})
	if err != nil {
		return err
	}
	defer closeAdminConns(conns)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	info, err := admingrpc.GetNodeInfo(ctx, conns[0].conn)
	if err != nil {
		return err
	}
	fmt.Printf("node_id          %s\n", info.NodeID)
	fmt.Printf("started_at       %s\n", info.StartedAt.Local().Format(time.RFC3339))
	fmt.Printf("sessions_open    %d\n", info.SessionsOpen)
	fmt.Printf("sessions_opened  %d\n", info.SessionsOpened)
	fmt.Printf("store_entries    %d\n", info.StoreEntries)
	fmt.Printf("buckets          %d/%d used\n", info.UsedBuckets, info.Buckets)
	fmt.Printf("longest_chain    %d\n", info.LongestChain)
	fmt.Printf("max_value_len    %d\n", info.MaxValueLen)
	return nil
}

func openAdminConns(addrs []string) ([]adminConn, error) {
	conns := make([]adminConn, 0, len(addrs))
	for _, addr := range addrs {
		conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			closeAdminConns(conns)
			return nil, fmt.Errorf("dial admin %s: %w", addr, err)
		}
		conns = append(conns, adminConn{addr: addr, conn: conn})
	}
	return conns, nil
}

func closeAdminConns(conns []adminConn) {
	for _, c := range conns {
		_ = c.conn.Close()
	}
}

func pollAdminRows(ctx context.Context, conns []adminConn, timeout time.Duration) ([]adminRow, time.Time) {
	rows := make([]adminRow, len(conns))
	var wg sync.WaitGroup
	wg.Add(len(conns))

	now := time.Now()
	for i, c := range conns {
		go func(i int, c adminConn) {
			defer wg.Done()

			reqCtx, cancel := context.WithTimeout(ctx, timeout)
			info, err := admingrpc.GetNodeInfo(reqCtx, c.conn)
			cancel()
			if err != nil {
				rows[i] = adminRow{addr: c.addr, err: err.Error()}
				return
			}
			rows[i] = rowFromNodeInfo(c.addr, info, now)
		}(i, c)
	}
	wg.Wait()

	sortAdminRows(rows)
	return rows, now
}

func rowFromNodeInfo(addr string, info admingrpc.NodeInfo, now time.Time) adminRow {
	row := adminRow{
		addr:         addr,
		nodeID:       info.NodeID,
		sessions:     info.SessionsOpen,
		opened:       info.SessionsOpened,
		entries:      info.StoreEntries,
		usedBuckets:  info.UsedBuckets,
		buckets:      info.Buckets,
		longestChain: info.LongestChain,
		maxValueLen:  info.MaxValueLen,
	}
	if !info.StartedAt.IsZero() {
		row.uptime = now.Sub(info.StartedAt)
	}
	return row
}

func sortAdminRows(rows []adminRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].nodeID == rows[j].nodeID {
			return rows[i].addr < rows[j].addr
		}
		if rows[i].nodeID == "" {
			return false
		}
		if rows[j].nodeID == "" {
			return true
		}
		return rows[i].nodeID < rows[j].nodeID
	})
}

// ---- Formatting helpers -----------------------------------------------------

func formatUptime(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	d = d.Truncate(time.Second)
	if d >= 24*time.Hour {
		return fmt.Sprintf("%dd%dh", int(d/(24*time.Hour)), int(d%(24*time.Hour)/time.Hour))
	}
	return d.String()
}

func errorKind(err string) string {
	switch {
	case strings.Contains(err, "code = Unavailable"):
		return "Unavailable"
	case strings.Contains(err, "code = Unimplemented"):
		return "Unimplemented"
	case strings.Contains(err, "code = DeadlineExceeded"):
		return "Timeout"
	default:
		return "Error"
	}
}

func errorSummary(err string) string {
	return strings.Join(strings.Fields(err), " ")
}

func shorten(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
