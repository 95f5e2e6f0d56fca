package ranker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/3leaps/applocate/pkg/apphit"
	"github.com/3leaps/applocate/pkg/evidence"
)

func TestTokenizeSplitsSeparatorsAndCamelCase(t *testing.T) {
	require.ElementsMatch(t, []string{"vs", "code", "vscode"}, Tokenize("VSCode"))
	require.ElementsMatch(t, []string{"visual", "studio", "code"}, Tokenize("visual-studio_code"))
}

func TestTokenizeSplitsDigitBoundaries(t *testing.T) {
	got := Tokenize("widget2024")
	require.Contains(t, got, "widget")
	require.Contains(t, got, "2024")
}

func TestScoreExactStemMatchIsHigh(t *testing.T) {
	hit := &apphit.AppHit{Type: apphit.Exe, Path: "c:/tools/widget/widget.exe"}
	conf, bd := Score("widget", hit)
	require.Greater(t, conf, 0.5)
	require.Greater(t, bd.NameMatch, 0.0)
}

func TestScoreDeterministic(t *testing.T) {
	hit := &apphit.AppHit{Type: apphit.Exe, Path: "c:/tools/widget/widget.exe", Sources: []string{"a", "b"}}
	c1, b1 := Score("widget", hit)
	c2, b2 := Score("widget", hit)
	require.Equal(t, c1, c2)
	require.Equal(t, *b1, *b2)
}

func TestScoreClampsToUnitInterval(t *testing.T) {
	hit := &apphit.AppHit{
		Type:    apphit.Exe,
		Path:    "c:/tools/widget/widget.exe",
		Sources: []string{"a", "b", "c", "d", "e"},
		Evidence: evidence.New(
			evidence.Shortcut, "1",
			evidence.ProcessID, "123",
			evidence.WhereQuery, "1",
			evidence.DirMatch, "1",
			evidence.ExeName, "1",
		),
	}
	conf, bd := Score("widget", hit)
	require.LessOrEqual(t, conf, 1.0)
	require.LessOrEqual(t, bd.Total, 1.0)
}

func TestScoreUninstallerSuppressed(t *testing.T) {
	hit := &apphit.AppHit{Type: apphit.Exe, Path: "c:/tools/widget/unins000.exe"}
	confUnins, _ := Score("widget", hit)

	legit := &apphit.AppHit{Type: apphit.Exe, Path: "c:/tools/widget/widget.exe"}
	confLegit, _ := Score("widget", legit)

	require.Less(t, confUnins, confLegit)
}

func TestScoreUninstallerNotSuppressedWhenQueryAsksForIt(t *testing.T) {
	hit := &apphit.AppHit{Type: apphit.Exe, Path: "c:/tools/widget/unins000.exe"}
	conf, _ := Score("widget uninstall", hit)
	require.Greater(t, conf, 0.0)
}

func TestScoreSteamAuxiliaryDampened(t *testing.T) {
	aux := &apphit.AppHit{Type: apphit.Exe, Path: "c:/steam/steamwebhelper.exe"}
	main := &apphit.AppHit{Type: apphit.Exe, Path: "c:/steam/steam.exe"}

	confAux, _ := Score("steam", aux)
	confMain, _ := Score("steam", main)
	require.Less(t, confAux, confMain)
}

func TestScoreTempPathPenalized(t *testing.T) {
	tempHit := &apphit.AppHit{Type: apphit.Exe, Path: "c:/users/x/appdata/local/temp/widget/widget.exe"}
	normalHit := &apphit.AppHit{Type: apphit.Exe, Path: "c:/tools/widget/widget.exe"}

	confTemp, _ := Score("widget", tempHit)
	confNormal, _ := Score("widget", normalHit)
	require.Less(t, confTemp, confNormal)
}

func TestScoreMultiSourceBoostsOverSingleSource(t *testing.T) {
	single := &apphit.AppHit{Type: apphit.Exe, Path: "c:/tools/widget/widget.exe", Sources: []string{"a"}}
	multi := &apphit.AppHit{Type: apphit.Exe, Path: "c:/tools/widget/widget.exe", Sources: []string{"a", "b", "c"}}

	confSingle, bdSingle := Score("widget", single)
	confMulti, bdMulti := Score("widget", multi)

	require.Equal(t, 0.0, bdSingle.MultiSource)
	require.Greater(t, bdMulti.MultiSource, 0.0)
	require.Greater(t, confMulti, confSingle)
}

func TestScoreAliasEquivalenceBonus(t *testing.T) {
	hit := &apphit.AppHit{Type: apphit.Exe, Path: "c:/tools/code/code.exe"}
	conf, bd := Score("vscode", hit)
	require.Greater(t, bd.AliasBonus, 0.0)
	require.Greater(t, conf, 0.0)
}

func TestScoreBrokenShortcutPenalized(t *testing.T) {
	hit := &apphit.AppHit{Type: apphit.Exe, Path: "c:/tools/widget/widget.exe",
		Evidence: evidence.New(evidence.BrokenShortcut, "1")}
	conf, bd := Score("widget", hit)
	require.Less(t, bd.EvidenceBoost, 0.0)
	_ = conf
}

func TestScoreUnrelatedCandidateScoresLow(t *testing.T) {
	hit := &apphit.AppHit{Type: apphit.Exe, Path: "c:/tools/sprocket/sprocket.exe"}
	conf, _ := Score("widget", hit)
	require.Less(t, conf, 0.2)
}
