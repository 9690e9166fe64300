package dashboard

import (
	"net/http"
)

// handlePage serves the single-page dashboard. The page is
// self-contained: it edits records through /api and re-renders
// whenever a message arrives on /ws.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(pageHTML))
}

const pageHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Edgeboard</title>
<style>
  body { font-family: system-ui, sans-serif; margin: 0; background: #0f172a; color: #e2e8f0; }
  header { display: flex; align-items: baseline; gap: 1.5rem; padding: 1rem 1.5rem; background: #1e293b; }
  header h1 { margin: 0; font-size: 1.2rem; }
  #stats { color: #94a3b8; font-size: .85rem; }
  main { display: grid; grid-template-columns: 2fr 1fr; gap: 1rem; padding: 1rem 1.5rem; }
  section h2 { font-size: .9rem; text-transform: uppercase; letter-spacing: .08em; color: #94a3b8; }
  .card { background: #1e293b; border-radius: 8px; padding: 1rem; margin-bottom: 1rem; border-left: 4px solid #475569; }
  .card h3 { margin: 0 0 .25rem; cursor: pointer; }
  .card p { margin: .25rem 0; color: #cbd5e1; cursor: pointer; }
  .card ul { margin: .5rem 0; padding-left: 1.2rem; }
  .card li span { cursor: pointer; }
  .card li button, .imgwrap button { background: none; border: none; color: #64748b; cursor: pointer; }
  .carousel { display: flex; gap: .5rem; overflow-x: auto; margin-top: .5rem; }
  .imgwrap { position: relative; }
  .imgwrap img { height: 90px; border-radius: 4px; }
  .imgwrap button { position: absolute; top: 0; right: 0; }
  .rule { padding: .4rem 0; border-bottom: 1px solid #334155; }
  .rule span { cursor: pointer; }
  .cat { color: #94a3b8; font-size: .75rem; text-transform: uppercase; margin-right: .5rem; }
  .metric { display: flex; justify-content: space-between; padding: .35rem 0; }
  .metric button { min-width: 6rem; border-radius: 4px; border: none; padding: .3rem; cursor: pointer; }
  .low { background: #7f1d1d; color: #fecaca; }
  .medium { background: #78350f; color: #fde68a; }
  .high { background: #14532d; color: #bbf7d0; }
  #readiness { font-size: 1.6rem; font-weight: 700; }
  input.edit { width: 100%; background: #0f172a; color: #e2e8f0; border: 1px solid #475569; border-radius: 4px; padding: .2rem; }
  .add { color: #64748b; cursor: pointer; font-size: .85rem; }
  input[type=file] { display: none; }
</style>
</head>
<body>
<header>
  <h1>Edgeboard</h1>
  <div id="stats"></div>
</header>
<main>
  <section>
    <h2>Setups <span class="add" onclick="createSetup()">+ new</span></h2>
    <div id="setups"></div>
  </section>
  <div>
    <section>
      <h2>Readiness</h2>
      <div class="card">
        <div id="readiness"></div>
        <div id="mental"></div>
      </div>
    </section>
    <section>
      <h2>Rules <span class="add" onclick="createRule()">+ new</span></h2>
      <div class="card" id="rules"></div>
    </section>
  </div>
</main>
<script>
const api = (path, opts) => fetch('/api' + path, opts).then(r => r.ok ? r.json().catch(() => null) : null);
const esc = s => { const d = document.createElement('div'); d.textContent = s || ''; return d.innerHTML; };
let editing = null; // only one field may be in edit mode at a time

async function render() {
  const [setups, rules, mental, stats] = await Promise.all([
    api('/setups'), api('/rules'), api('/mental'), api('/stats')]);
  renderStats(stats);
  renderSetups(setups || []);
  renderRules(rules || []);
  renderMental(mental);
}

function renderStats(s) {
  if (!s) return;
  document.getElementById('stats').textContent =
    s.setups + ' setups · ' + s.images + ' images · ' + s.rules + ' rules · readiness ' + s.readiness + '%';
}

function renderSetups(setups) {
  const root = document.getElementById('setups');
  root.innerHTML = '';
  for (const su of setups) {
    const card = document.createElement('div');
    card.className = 'card';
    card.style.borderLeftColor = colorOf(su.color);
    card.innerHTML =
      '<h3 onclick="editField(this, \'' + su.id + '\', \'name\')">' + esc(su.name) + '</h3>' +
      '<p onclick="editField(this, \'' + su.id + '\', \'description\')">' + (esc(su.description) || '<i>describe…</i>') + '</p>' +
      '<ul>' + (su.bulletPoints || []).map((b, i) =>
        '<li><span onclick="editBullet(this, \'' + su.id + '\', ' + i + ')">' + esc(b) + '</span>' +
        '<button onclick="removeBullet(\'' + su.id + '\', ' + i + ')">✕</button></li>').join('') + '</ul>' +
      '<span class="add" onclick="addBullet(\'' + su.id + '\')">+ bullet</span> ' +
      '<span class="add" onclick="this.nextElementSibling.click()">+ image</span>' +
      '<input type="file" accept="image/*" multiple onchange="upload(\'' + su.id + '\', this.files)">' +
      '<div class="carousel">' + (su.images || []).map((img, i) =>
        '<div class="imgwrap"><img src="' + img + '">' +
        '<button onclick="removeImage(\'' + su.id + '\', ' + i + ')">✕</button></div>').join('') + '</div>';
    card.ondragover = e => e.preventDefault();
    card.ondrop = e => { e.preventDefault(); upload(su.id, e.dataTransfer.files); };
    root.appendChild(card);
  }
}

function renderRules(rules) {
  const root = document.getElementById('rules');
  root.innerHTML = '';
  for (const cat of ['entry', 'exit', 'risk', 'forbidden']) {
    for (const r of rules.filter(x => x.category === cat)) {
      const div = document.createElement('div');
      div.className = 'rule';
      div.innerHTML = '<span class="cat">' + cat + '</span>' +
        '<span onclick="editRule(this, \'' + r.id + '\')">' + esc(r.content) + '</span>' +
        '<button style="float:right;background:none;border:none;color:#64748b;cursor:pointer" ' +
        'onclick="delRule(\'' + r.id + '\')">✕</button>';
      root.appendChild(div);
    }
  }
}

function renderMental(m) {
  if (!m) return;
  document.getElementById('readiness').textContent = m.readiness + '%';
  const root = document.getElementById('mental');
  root.innerHTML = '';
  for (const metric of ['confidence', 'focus', 'emotional', 'energy']) {
    const level = m.state[metric];
    const div = document.createElement('div');
    div.className = 'metric';
    div.innerHTML = '<span>' + metric + '</span>' +
      '<button class="' + level + '" onclick="cycle(\'' + metric + '\')">' + level + '</button>';
    root.appendChild(div);
  }
}

function colorOf(name) {
  return {emerald:'#10b981', sky:'#0ea5e9', amber:'#f59e0b', rose:'#f43f5e', slate:'#64748b'}[name] || '#64748b';
}

// Begin-edit swaps the element for an input holding the current value;
// Enter commits through PATCH, Escape cancels with no store interaction.
function beginEdit(el, current, commit) {
  if (editing) { editing.cancel(); }
  const input = document.createElement('input');
  input.className = 'edit';
  input.value = current;
  const done = { cancel: () => { editing = null; render(); } };
  editing = done;
  input.onkeydown = e => {
    if (e.key === 'Enter') { editing = null; commit(input.value); }
    if (e.key === 'Escape') done.cancel();
  };
  el.replaceWith(input);
  input.focus();
}

function editField(el, id, field) {
  beginEdit(el, el.textContent, v =>
    api('/setups/' + id, {method: 'PATCH', body: JSON.stringify({[field]: v})}));
}
function editBullet(el, id, i) {
  beginEdit(el, el.textContent, async v => {
    const su = (await api('/setups') || []).find(x => x.id === id);
    if (!su) return;
    const bullets = su.bulletPoints || [];
    bullets[i] = v;
    api('/setups/' + id, {method: 'PATCH', body: JSON.stringify({bulletPoints: bullets})});
  });
}
function editRule(el, id) {
  beginEdit(el, el.textContent, v =>
    api('/rules/' + id, {method: 'PATCH', body: JSON.stringify({content: v})}));
}

const createSetup = () => api('/setups', {method: 'POST', body: JSON.stringify({name: 'New setup'})});
const createRule = () => {
  const cat = prompt('Category (entry/exit/risk/forbidden):', 'entry');
  const content = cat && prompt('Rule:');
  if (content) api('/rules', {method: 'POST', body: JSON.stringify({category: cat, content})});
};
const delRule = id => api('/rules/' + id, {method: 'DELETE'});
const addBullet = id => {
  const text = prompt('Bullet point:');
  if (text) api('/setups/' + id + '/bullets', {method: 'POST', body: JSON.stringify({text})});
};
const removeBullet = (id, i) => api('/setups/' + id + '/bullets/' + i, {method: 'DELETE'});
const removeImage = (id, i) => api('/setups/' + id + '/images/' + i, {method: 'DELETE'});
const cycle = metric => api('/mental/' + metric + '/cycle', {method: 'POST'});

function upload(id, files) {
  const form = new FormData();
  for (const f of files) form.append('images', f);
  fetch('/api/setups/' + id + '/images', {method: 'POST', body: form});
}

function connect() {
  const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
  ws.onmessage = () => { if (!editing) render(); };
  ws.onclose = () => setTimeout(connect, 2000);
}

render();
connect();
</script>
</body>
</html>
`
