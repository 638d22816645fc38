package codebook

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"
	"unicode"

	"github.com/tallgrasslab/chat-coder/codebook/fileutils"
)

// RenderOptions controls how generated pages are written to disk.
type RenderOptions struct {
	// OverwriteExisting controls whether an existing page file is replaced.
	OverwriteExisting bool
}

// WriteConversationPage renders the annotation page for a pairwise
// conversation and writes it atomically to path.
func WriteConversationPage(path, userI, userJ string, units []Unit, scheme Scheme, opts RenderOptions) error {
	if !opts.OverwriteExisting && fileutils.FileExists(path) {
		return fmt.Errorf("WriteConversationPage: output file already exists: %s", path)
	}
	var b strings.Builder
	if err := RenderConversationPage(&b, userI, userJ, units, scheme); err != nil {
		return err
	}
	if err := fileutils.WriteFileAtomicSameDir(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("WriteConversationPage: write page: %w", err)
	}
	return nil
}

// WriteGroupChatPage renders the annotation page for a group chat and writes
// it atomically to path.
func WriteGroupChatPage(path, chatID, mainUser string, turns []Turn, scheme Scheme, opts RenderOptions) error {
	if !opts.OverwriteExisting && fileutils.FileExists(path) {
		return fmt.Errorf("WriteGroupChatPage: output file already exists: %s", path)
	}
	var b strings.Builder
	if err := RenderGroupChatPage(&b, chatID, mainUser, turns, scheme); err != nil {
		return err
	}
	if err := fileutils.WriteFileAtomicSameDir(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("WriteGroupChatPage: write page: %w", err)
	}
	return nil
}

// RenderConversationPage emits a self-contained annotation page for a
// pairwise conversation. Turns by userI align right, userJ left. The CSV
// export carries Unit and Turn index columns.
func RenderConversationPage(w io.Writer, userI, userJ string, units []Unit, scheme Scheme) error {
	if err := scheme.Validate(); err != nil {
		return fmt.Errorf("RenderConversationPage: invalid scheme: %w", err)
	}
	if len(units) == 0 {
		return errors.New("RenderConversationPage: conversation has no units")
	}

	var turns []turnView
	number := 1
	for unitIdx, unit := range units {
		for turnIdx, turn := range unit {
			if len(turn) == 0 {
				continue
			}
			alignment := "left"
			if turn.Sender() == userI {
				alignment = "right"
			}
			turns = append(turns, turnView{
				Number:    number,
				TurnIndex: turnIdx,
				UnitIndex: unitIdx,
				Sender:    turn.Sender(),
				Alignment: alignment,
				Messages:  messageViews(turn),
			})
			number++
		}
	}

	data, err := newPageData(pageData{
		Title:   fmt.Sprintf("Conversation: %s and %s", userI, userJ),
		Heading: fmt.Sprintf("Conversation: %s & %s", userI, userJ),
		CSVName: ConversationCSVName(userI, userJ),
		Turns:   turns,
	}, scheme, false)
	if err != nil {
		return err
	}
	return pageTemplate.Execute(w, data)
}

// RenderGroupChatPage emits a self-contained annotation page for a group
// chat. Turns by mainUser align right, everyone else left. The CSV export
// carries Turn index and Sender columns.
func RenderGroupChatPage(w io.Writer, chatID, mainUser string, turns []Turn, scheme Scheme) error {
	if err := scheme.Validate(); err != nil {
		return fmt.Errorf("RenderGroupChatPage: invalid scheme: %w", err)
	}
	if len(turns) == 0 {
		return errors.New("RenderGroupChatPage: chat has no turns")
	}

	var views []turnView
	for idx, turn := range turns {
		if len(turn) == 0 {
			continue
		}
		alignment := "left"
		if turn.Sender() == mainUser {
			alignment = "right"
		}
		views = append(views, turnView{
			Number:    idx + 1,
			TurnIndex: idx,
			Sender:    turn.Sender(),
			Alignment: alignment,
			Messages:  messageViews(turn),
		})
	}

	data, err := newPageData(pageData{
		Title:        "Group Chat: " + chatID,
		Heading:      "Group Chat: " + chatID,
		MainUserNote: mainUser,
		CSVName:      GroupChatCSVName(chatID),
		Turns:        views,
	}, scheme, true)
	if err != nil {
		return err
	}
	return pageTemplate.Execute(w, data)
}

// ConversationCSVName is the download name of a pairwise coding export.
func ConversationCSVName(userI, userJ string) string {
	return fmt.Sprintf("conversation_%s_%s_coded.csv", userI, userJ)
}

// GroupChatCSVName is the download name of a group-chat coding export.
func GroupChatCSVName(chatID string) string {
	return fmt.Sprintf("group_chat_%s_coded.csv", SafeFileName(chatID))
}

// SafeFileName keeps letters, digits, '_' and '-', dropping everything else.
func SafeFileName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

const messageTimeLayout = "2006-01-02 15:04:05"

type pageData struct {
	Title        string
	Heading      string
	MainUserNote string
	CSVName      string
	GroupMode    bool

	Categories []categoryView
	Turns      []turnView

	CategoriesJSON template.JS
	DependentJSON  template.JS
	CSVHeaderJSON  template.JS
}

type categoryView struct {
	ID         int
	Label      string
	ButtonText string
	Dependent  bool
	Options    []string
}

type turnView struct {
	Number    int
	TurnIndex int
	UnitIndex int
	Sender    string
	Alignment string
	Messages  []messageView
}

type messageView struct {
	Timestamp  string
	Text       string
	Translated string
}

func messageViews(turn Turn) []messageView {
	views := make([]messageView, 0, len(turn))
	for _, m := range turn {
		v := messageView{
			Timestamp: m.Timestamp.Format(messageTimeLayout),
			Text:      m.Text,
		}
		if m.Translated != "" && m.Translated != m.Text {
			v.Translated = m.Translated
		}
		views = append(views, v)
	}
	return views
}

// newPageData fills the scheme-derived parts of the page: category views,
// the dependent-option mappings and the CSV header, all serialized once for
// the page script.
func newPageData(data pageData, scheme Scheme, groupMode bool) (pageData, error) {
	data.GroupMode = groupMode

	type categoryMeta struct {
		ID        int  `json:"id"`
		Dependent bool `json:"dependent"`
	}
	metas := make([]categoryMeta, 0, len(scheme.Categories))
	dependent := make(map[string]map[string][]string)

	for i, c := range scheme.Categories {
		id := i + 1
		view := categoryView{
			ID:         id,
			Label:      c.Label,
			ButtonText: c.ButtonText,
			Dependent:  c.Dependent(),
		}
		if c.Dependent() {
			order := c.GroupOrder
			if len(order) != len(c.Groups) {
				order = sortedGroupNames(c.Groups)
			}
			view.Options = append(append([]string(nil), order...), "Other")
			dependent[fmt.Sprintf("%d", id)] = c.Groups
		} else {
			view.Options = c.Options
		}
		data.Categories = append(data.Categories, view)
		metas = append(metas, categoryMeta{ID: id, Dependent: c.Dependent()})
	}

	metaJSON, err := json.Marshal(metas)
	if err != nil {
		return pageData{}, fmt.Errorf("marshal category metadata: %w", err)
	}
	depJSON, err := json.Marshal(dependent)
	if err != nil {
		return pageData{}, fmt.Errorf("marshal dependent mappings: %w", err)
	}

	prefix := []string{"Unit", "Turn"}
	if groupMode {
		prefix = []string{"Turn", "Sender"}
	}
	headerJSON, err := json.Marshal(scheme.CSVHeader(prefix))
	if err != nil {
		return pageData{}, fmt.Errorf("marshal csv header: %w", err)
	}

	data.CategoriesJSON = template.JS(metaJSON)
	data.DependentJSON = template.JS(depJSON)
	data.CSVHeaderJSON = template.JS(headerJSON)
	return data, nil
}

var pageTemplate = template.Must(template.New("page").Parse(pageTemplateText))

const pageTemplateText = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
    body {
        font-family: Arial, sans-serif;
        background-color: #f9f9f9;
        margin: 20px;
    }
    h2 {
        color: #333;
    }
    .turn {
        margin: 10px 0;
        padding: 10px;
        border-radius: 8px;
        clear: both;
        overflow: auto;
    }
    .turn.left {
        background-color: #f0f0f0;
        text-align: left;
        float: left;
        max-width: 60%;
    }
    .turn.right {
        background-color: #dcf8c6;
        text-align: right;
        float: right;
        max-width: 60%;
    }
    .message {
        margin: 5px 0;
    }
    .timestamp {
        font-size: 0.8em;
        color: #555;
    }
    .translation {
        font-size: 1em;
        color: #666;
        font-style: italic;
    }
    .dropdown-container {
        margin-top: 10px;
        clear: both;
        font-size: 0.85em;
        font-style: italic;
        color: #444;
    }
    .category-group, .dropdown-group-container {
        padding: 5px;
        margin-bottom: 5px;
    }
    .dropdown-group {
        margin-bottom: 5px;
        display: inline-block;
        vertical-align: middle;
    }
    .dropdown-group label {
        font-weight: bold;
        margin-right: 5px;
    }
    .add-button {
        font-size: 0.75em;
        margin-left: 5px;
        vertical-align: middle;
    }
    .download-button {
        display: block;
        margin: 40px auto;
        padding: 10px 20px;
        font-size: 1em;
    }
    .clear {
        clear: both;
    }
</style>
</head>
<body>
<h2>{{.Heading}}</h2>
{{if .MainUserNote}}<p>Main user (messages on right): <strong>{{.MainUserNote}}</strong></p>
{{end}}<div class="clearfix" id="content">
<script>
var pageCategories = {{.CategoriesJSON}};
var dependentMappings = {{.DependentJSON}};
var csvHeaders = {{.CSVHeaderJSON}};
var csvName = "{{.CSVName}}";
var groupMode = {{.GroupMode}};

document.addEventListener('DOMContentLoaded', function() {
    // --- Primary dropdown change event for dependent dropdowns ---
    document.addEventListener('change', function(e) {
        if (e.target && e.target.classList.contains('turn-dropdown')) {
            var catId = e.target.getAttribute('data-dd');
            var selected = e.target.value;
            var catGroup = e.target.closest('[data-cat="' + catId + '"]');

            if (!catGroup) return;

            if (dependentMappings[catId]) {
                var depGroup = catGroup.querySelector('.dropdown-group[data-dd="dep"]');
                var otherGroup = catGroup.querySelector('.dropdown-group[data-dd="other"]');
                var depSelect = depGroup ? depGroup.querySelector('select') : null;

                if (selected && selected === "Other") {
                    if (depGroup) depGroup.style.display = "none";
                    if (otherGroup) otherGroup.style.display = "inline-block";
                } else if (selected && dependentMappings[catId][selected]) {
                    if (otherGroup) otherGroup.style.display = "none";
                    if (depSelect) {
                        depSelect.innerHTML = '<option value="">--Select--</option>';
                        dependentMappings[catId][selected].forEach(function(opt) {
                            var option = document.createElement("option");
                            option.value = opt;
                            option.text = opt;
                            depSelect.appendChild(option);
                        });
                        depGroup.style.display = "inline-block";
                    }
                } else {
                    if (depGroup) depGroup.style.display = "none";
                    if (otherGroup) otherGroup.style.display = "none";
                    if (depSelect) depSelect.innerHTML = '<option value="">--Select--</option>';
                }
            }
        }
    });

    // --- Add-button cloning ---
    document.querySelectorAll('.add-button').forEach(function(button) {
        button.addEventListener('click', function() {
            var cat = this.getAttribute("data-cat");
            var container = this.parentElement;
            var isDependent = dependentMappings[cat] !== undefined;

            if (isDependent) {
                // Dependent categories clone the whole container.
                var clone = container.cloneNode(true);
                clone.querySelectorAll('select, input').forEach(function(elem) {
                    elem.value = "";
                    elem.removeAttribute('id');
                });
                container.parentElement.appendChild(clone);
            } else {
                // Simple categories clone only the dropdown group, inline.
                var originalGroup = container.querySelector('.dropdown-group');
                var groupClone = originalGroup.cloneNode(true);
                groupClone.querySelectorAll('select, input').forEach(function(elem) {
                    elem.value = "";
                    elem.removeAttribute('id');
                });
                container.insertBefore(groupClone, this);
            }
        });
    });

    // --- CSV download ---
    document.getElementById("downloadCSVButton").addEventListener("click", function() {
        var csvRows = [];
        csvRows.push(csvHeaders.join(","));

        var turnDivs = document.querySelectorAll(".turn");
        turnDivs.forEach(function(turnDiv) {
            var row = [];
            if (groupMode) {
                row.push(turnDiv.getAttribute("data-turn") || "");
                row.push(turnDiv.getAttribute("data-sender") || "");
            } else {
                row.push(turnDiv.getAttribute("data-unit") || "");
                row.push(turnDiv.getAttribute("data-turn") || "");
            }

            pageCategories.forEach(function(cat) {
                var catGroups = turnDiv.querySelectorAll('[data-cat="' + cat.id + '"]');
                var primaryVals = [];
                var detailedVals = [];

                catGroups.forEach(function(group) {
                    var primary = group.querySelector('select[data-dd="' + cat.id + '"]');
                    if (primary && primary.value.trim() !== "") {
                        primaryVals.push(primary.value.trim());

                        if (cat.dependent) {
                            var detail = "";
                            var depSel = group.querySelector('.dropdown-group[data-dd="dep"] select');
                            var otherInp = group.querySelector('.dropdown-group[data-dd="other"] input');

                            if (otherInp && getComputedStyle(otherInp.parentElement).display !== "none" && otherInp.value.trim() !== "") {
                                detail = otherInp.value.trim();
                            } else if (depSel && getComputedStyle(depSel.parentElement).display !== "none" && depSel.value.trim() !== "") {
                                detail = depSel.value.trim();
                            }

                            if (detail !== "") {
                                detailedVals.push(detail);
                            }
                        }
                    }
                });

                row.push(primaryVals.join(";"));
                if (cat.dependent) {
                    row.push(detailedVals.join(";"));
                }
            });

            csvRows.push(row.join(","));
        });

        var csvContent = "data:text/csv;charset=utf-8," + csvRows.join("\n");
        var encodedUri = encodeURI(csvContent);
        var link = document.createElement("a");
        link.setAttribute("href", encodedUri);
        link.setAttribute("download", csvName);
        document.body.appendChild(link);
        link.click();
        document.body.removeChild(link);
    });
});
</script>
{{range .Turns}}<div class="turn {{.Alignment}}"{{if $.GroupMode}} data-turn="{{.TurnIndex}}" data-sender="{{.Sender}}"{{else}} data-unit="{{.UnitIndex}}" data-turn="{{.TurnIndex}}"{{end}}>
<strong>Turn {{.Number}} ({{.Sender}}):</strong><br>
{{range .Messages}}<div class="message"><span class="timestamp">{{.Timestamp}}</span> - <span class="text">{{.Text}}</span>{{if .Translated}}<br><span class="translation">[Translation: {{.Translated}}]</span>{{end}}</div>
{{end}}<div class="dropdown-container">
{{range $.Categories}}<div class="{{if .Dependent}}category-group{{else}}dropdown-group-container{{end}}" data-cat="{{.ID}}">
<div class="dropdown-group" data-dd="{{.ID}}">
<label>{{.Label}}: </label>
<select class="turn-dropdown" data-dd="{{.ID}}">
<option value="">--None--</option>
{{range .Options}}<option value="{{.}}">{{.}}</option>
{{end}}</select>
</div>
{{if .Dependent}}<div class="dropdown-group" data-dd="dep" style="display:none;">
<label>Detailed: </label>
<select class="dependent-dropdown" data-dd="dep">
<option value="">--Select--</option>
</select>
</div>
<div class="dropdown-group" data-dd="other" style="display:none;">
<label>Please specify: </label>
<input type="text" class="other-input" data-dd="other" />
</div>
{{end}}<button type="button" class="add-button" data-cat="{{.ID}}">{{.ButtonText}}</button>
</div>
{{end}}</div>
</div>
{{end}}<div class="clear"></div>
<button class="download-button" id="downloadCSVButton">Download</button>
</div>
</body>
</html>
`
