package app

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Bot Dashboard</title>
    <style>
        :root {
            --bg-primary: #0d1117;
            --bg-secondary: #161b22;
            --bg-tertiary: #21262d;
            --border-color: #30363d;
            --text-primary: #c9d1d9;
            --text-secondary: #8b949e;
            --text-heading: #f0f6fc;
            --accent-blue: #58a6ff;
            --accent-green: #3fb950;
            --accent-red: #f85149;
            --accent-yellow: #d29922;
        }
        * { box-sizing: border-box; }
        body {
            margin: 0;
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Helvetica, Arial, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
        }
        header {
            display: flex;
            align-items: center;
            justify-content: space-between;
            padding: 12px 24px;
            background: var(--bg-secondary);
            border-bottom: 1px solid var(--border-color);
        }
        header h1 { font-size: 18px; margin: 0; color: var(--text-heading); }
        .ws { font-size: 12px; color: var(--text-secondary); }
        .dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; background: var(--accent-red); margin-right: 6px; }
        .dot.on { background: var(--accent-green); }
        nav { display: flex; gap: 4px; padding: 8px 24px; background: var(--bg-secondary); border-bottom: 1px solid var(--border-color); }
        nav button {
            background: none; border: 1px solid transparent; color: var(--text-secondary);
            padding: 6px 12px; border-radius: 6px; cursor: pointer;
        }
        nav button.active { color: var(--text-heading); border-color: var(--border-color); background: var(--bg-tertiary); }
        main { padding: 24px; }
        section { display: none; }
        section.active { display: block; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 12px; }
        .card { background: var(--bg-secondary); border: 1px solid var(--border-color); border-radius: 8px; padding: 16px; margin-bottom: 16px; }
        .card h2 { font-size: 14px; margin: 0 0 12px; color: var(--text-heading); }
        .metric .label { font-size: 12px; color: var(--text-secondary); }
        .metric .value { font-size: 20px; margin-top: 4px; color: var(--text-heading); }
        .status-indicator.online { color: var(--accent-green); }
        .status-indicator.offline, .status-indicator.error { color: var(--accent-red); }
        button.action {
            background: var(--bg-tertiary); color: var(--text-primary); border: 1px solid var(--border-color);
            padding: 6px 14px; border-radius: 6px; cursor: pointer; margin-right: 6px;
        }
        button.action:disabled { opacity: 0.5; cursor: not-allowed; }
        input, select, textarea {
            background: var(--bg-primary); color: var(--text-primary); border: 1px solid var(--border-color);
            border-radius: 6px; padding: 6px 8px; margin: 4px 6px 4px 0;
        }
        .toast { min-height: 20px; font-size: 13px; margin-top: 8px; opacity: 0; transition: opacity 0.3s; }
        .toast.show { opacity: 1; }
        .toast.success { color: var(--accent-green); }
        .toast.error { color: var(--accent-red); }
        .toast.info { color: var(--accent-blue); }
        .bars .row { display: flex; align-items: center; margin: 4px 0; font-size: 13px; }
        .bars .name { width: 140px; color: var(--text-secondary); overflow: hidden; text-overflow: ellipsis; }
        .bars .bar { height: 14px; background: rgba(75, 192, 192, 0.6); border: 1px solid rgba(75, 192, 192, 1); margin: 0 8px; }
        #logOutput {
            background: var(--bg-primary); border: 1px solid var(--border-color); border-radius: 6px;
            height: 420px; overflow-y: auto; padding: 8px; font-family: ui-monospace, SFMono-Regular, Menlo, monospace; font-size: 12px;
        }
        #logOutput p { margin: 0; white-space: pre-wrap; }
        .log-error { color: var(--accent-red); }
        .log-warn { color: var(--accent-yellow); }
        .log-info { color: var(--text-primary); }
        .error { color: var(--accent-red); }
        .muted { color: var(--text-secondary); }
        table { width: 100%; border-collapse: collapse; font-size: 13px; }
        th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid var(--border-color); }
        th { color: var(--text-secondary); font-weight: 500; }
    </style>
</head>
<body>
    <header>
        <h1>Bot Dashboard</h1>
        <div class="ws"><span class="dot" id="wsDot"></span><span id="wsStatus">Connecting...</span></div>
    </header>
    <nav id="tabs">
        <button data-tab="dashboard">Dashboard</button>
        <button data-tab="logs">Logs</button>
        <button data-tab="config">Config</button>
        <button data-tab="guilds">Guilds</button>
        <button data-tab="reaction_roles">Reaction Roles</button>
        <button data-tab="all">All</button>
    </nav>
    <main>
        <section data-panel="dashboard">
            <div class="grid">
                <div class="card metric"><div class="label">Status</div><div class="value status-indicator" id="statusIndicator">-</div></div>
                <div class="card metric"><div class="label">Uptime</div><div class="value" id="uptime">-</div></div>
                <div class="card metric"><div class="label">Latency</div><div class="value" id="latency">-</div></div>
                <div class="card metric"><div class="label">Users</div><div class="value" id="users">-</div></div>
                <div class="card metric"><div class="label">Guilds</div><div class="value" id="guildCount">-</div></div>
                <div class="card metric"><div class="label">Commands today</div><div class="value" id="commandsToday">-</div></div>
            </div>
            <div class="toast" id="toast-status"></div>
            <div class="card">
                <h2>Control panel</h2>
                <button class="action control" data-action="restart">Restart Bot</button>
                <button class="action control" data-action="reload_cogs">Reload Cogs</button>
                <button class="action control" data-action="update_git">Update from Git</button>
                <div class="toast" id="toast-control"></div>
            </div>
            <div class="card">
                <h2>Send announcement</h2>
                <input id="annChannel" placeholder="Channel ID" size="22">
                <input id="annMessage" placeholder="Message" size="60">
                <button class="action" id="annSend">Send</button>
                <div class="toast" id="toast-announcement"></div>
            </div>
            <div class="card">
                <h2>Command usage</h2>
                <div class="bars" id="chart"></div>
                <h2 style="margin-top:16px">Top commands</h2>
                <ol id="topCommands"></ol>
            </div>
        </section>
        <section data-panel="logs">
            <div class="card">
                <select id="logLevel">
                    <option value="all">All levels</option>
                    <option value="INFO">INFO</option>
                    <option value="WARN">WARN</option>
                    <option value="ERROR">ERROR</option>
                </select>
                <input id="logText" placeholder="Filter text" size="30">
                <button class="action" id="logClear">Clear</button>
                <button class="action" id="logDownload">Download</button>
                <select id="simLevel"><option>INFO</option><option>WARN</option><option>ERROR</option></select>
                <input id="simMessage" placeholder="Simulated log message" size="30">
                <button class="action" id="simSend">Simulate</button>
                <div class="toast" id="toast-logs"></div>
                <div id="logOutput"></div>
                <div class="muted" id="logMeta"></div>
            </div>
        </section>
        <section data-panel="config">
            <div class="card"><h2>Bot configuration</h2><div id="configOutput"></div></div>
        </section>
        <section data-panel="guilds">
            <div class="card"><h2>Guilds</h2><div id="guildsOutput"></div></div>
        </section>
        <section data-panel="reaction_roles">
            <div class="card">
                <h2>Add reaction role</h2>
                <input id="rrGuild" placeholder="Guild ID" size="20">
                <input id="rrChannel" placeholder="Channel ID" size="20">
                <input id="rrMessage" placeholder="Message ID" size="20">
                <input id="rrEmoji" placeholder="Emoji" size="6">
                <input id="rrRole" placeholder="Role ID" size="20">
                <button class="action" id="rrAdd">Add</button>
                <div class="toast" id="toast-reaction_roles"></div>
            </div>
            <div class="card"><h2>Reaction roles</h2><div id="rrOutput"></div></div>
        </section>
    </main>
    <script>
        let state = null;
        let activeTab = 'all';
        const idPattern = /^\d{17,19}$/;

        function el(id) { return document.getElementById(id); }
        function text(id, v) { el(id).textContent = v; }

        function post(path, body) {
            return fetch(path, {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify(body || {})
            }).then(r => r.json().catch(() => ({})));
        }

        function showTab(tab) {
            activeTab = tab;
            document.querySelectorAll('#tabs button').forEach(b => b.classList.toggle('active', b.dataset.tab === tab));
            document.querySelectorAll('section').forEach(s => {
                s.classList.toggle('active', tab === 'all' || s.dataset.panel === tab);
            });
        }

        function renderStatus(s) {
            const ind = el('statusIndicator');
            ind.textContent = s.indicator;
            ind.className = 'value status-indicator ' + s.indicator_class;
            text('uptime', s.uptime);
            text('latency', s.latency);
            text('users', s.users);
            text('guildCount', s.guilds);
            text('commandsToday', s.commands_today);
        }

        function renderStats(st) {
            const chart = el('chart');
            chart.innerHTML = '';
            const max = Math.max(1, ...st.chart.data);
            st.chart.labels.forEach((label, i) => {
                const row = document.createElement('div');
                row.className = 'row';
                const name = document.createElement('span');
                name.className = 'name';
                name.textContent = label;
                const bar = document.createElement('span');
                bar.className = 'bar';
                bar.style.width = Math.round(300 * st.chart.data[i] / max) + 'px';
                const n = document.createElement('span');
                n.textContent = st.chart.data[i];
                row.append(name, bar, n);
                chart.appendChild(row);
            });
            const list = el('topCommands');
            list.innerHTML = '';
            if (st.error) {
                const li = document.createElement('li');
                li.className = 'error';
                li.textContent = st.error;
                list.appendChild(li);
            } else if (st.empty) {
                list.innerHTML = '<li class="muted">No commands used yet.</li>';
            } else {
                st.top.forEach(c => {
                    const li = document.createElement('li');
                    li.textContent = c.name + ': ' + c.count;
                    list.appendChild(li);
                });
            }
        }

        function renderLogs(v) {
            const out = el('logOutput');
            const atBottom = out.scrollTop + out.clientHeight >= out.scrollHeight - 4;
            out.innerHTML = '';
            if (v.error) {
                out.innerHTML = '<p class="error"></p>';
                out.firstChild.textContent = v.error;
            } else {
                v.lines.forEach(l => {
                    const p = document.createElement('p');
                    p.textContent = l.text;
                    if (l.class) p.classList.add(l.class);
                    out.appendChild(p);
                });
            }
            if (atBottom) out.scrollTop = out.scrollHeight;
            text('logMeta', v.state + ' - showing ' + v.lines.length + ' of ' + v.matched + ' (' + v.held + ' held)');
        }

        function renderPlaceholder(container, view) {
            if (view.error) {
                container.innerHTML = '<p class="error"></p>';
                container.firstChild.textContent = view.error;
                return true;
            }
            if (view.placeholder) {
                container.innerHTML = '<p class="muted"></p>';
                container.firstChild.textContent = view.placeholder;
                return true;
            }
            return false;
        }

        function renderTable(container, headers, rows) {
            const table = document.createElement('table');
            const head = document.createElement('tr');
            headers.forEach(h => { const th = document.createElement('th'); th.textContent = h; head.appendChild(th); });
            table.appendChild(head);
            rows.forEach(r => {
                const tr = document.createElement('tr');
                r.forEach(c => {
                    const td = document.createElement('td');
                    if (c instanceof Node) td.appendChild(c); else td.textContent = c;
                    tr.appendChild(td);
                });
                table.appendChild(tr);
            });
            container.innerHTML = '';
            container.appendChild(table);
        }

        function renderConfig(v) {
            const out = el('configOutput');
            if (renderPlaceholder(out, v)) return;
            renderTable(out, ['Key', 'Value'], v.items.map(i => [i.key, i.value]));
        }

        function renderGuilds(v) {
            const out = el('guildsOutput');
            if (renderPlaceholder(out, v)) return;
            renderTable(out, ['Name', 'ID', 'Members', 'Channels', 'Owner', 'Created'],
                v.guilds.map(g => [g.name, g.id, g.member_count, g.channel_count,
                    g.owner_name + ' (' + g.owner_id + ')', g.created_at ? g.created_at.slice(0, 10) : 'N/A']));
        }

        function renderRoles(v) {
            const out = el('rrOutput');
            if (renderPlaceholder(out, v)) return;
            renderTable(out, ['Guild', 'Channel', 'Message', 'Emoji', 'Role', ''], v.rules.map(r => {
                const btn = document.createElement('button');
                btn.className = 'action';
                btn.textContent = 'Remove';
                btn.onclick = () => {
                    if (!confirm('Remove ' + r.emoji + ' from message ' + r.message_id + '?')) return;
                    post('/api/reaction_roles/remove', { message_id: r.message_id, emoji: r.emoji, confirm: true });
                };
                return [r.guild_id, r.channel_id, r.message_id, r.emoji, r.role_id, btn];
            }));
        }

        function renderToasts(toasts) {
            document.querySelectorAll('.toast').forEach(t => { t.className = 'toast'; t.textContent = ''; });
            toasts.forEach(t => {
                const node = el('toast-' + t.target);
                if (!node) return;
                node.textContent = t.text;
                node.className = 'toast' + (t.visible ? ' show ' + t.kind : '');
            });
        }

        function render(s) {
            state = s;
            renderStatus(s.status);
            renderStats(s.stats);
            renderLogs(s.logs);
            renderConfig(s.config);
            renderGuilds(s.guilds);
            renderRoles(s.reaction_roles);
            renderToasts(s.toasts || []);
            document.querySelectorAll('button.control').forEach(b => b.disabled = s.control.disabled);
            el('annSend').disabled = s.control.disabled || s.announcement.sending;
            if (s.tab && s.tab !== activeTab) showTab(s.tab);
        }

        function connect() {
            const protocol = window.location.protocol === 'https:' ? 'wss:' : 'ws:';
            const ws = new WebSocket(protocol + '//' + window.location.host + '/ws');
            ws.onopen = () => { el('wsDot').classList.add('on'); text('wsStatus', 'Live'); };
            ws.onclose = () => {
                el('wsDot').classList.remove('on');
                text('wsStatus', 'Disconnected, retrying...');
                setTimeout(connect, 5000);
            };
            ws.onmessage = (e) => {
                const msg = JSON.parse(e.data);
                if (msg.type === 'state') render(msg.state);
            };
        }

        document.querySelectorAll('#tabs button').forEach(b => b.onclick = () => {
            showTab(b.dataset.tab);
            post('/api/tab', { tab: b.dataset.tab });
        });
        document.querySelectorAll('button.control').forEach(b => b.onclick = () => post('/api/control', { action: b.dataset.action }));
        el('annSend').onclick = () => {
            post('/api/announcement', { channel_id: el('annChannel').value, message: el('annMessage').value })
                .then(r => { if (r.success) el('annMessage').value = ''; });
        };
        el('rrAdd').onclick = () => {
            const form = {
                guild_id: el('rrGuild').value.trim(), channel_id: el('rrChannel').value.trim(),
                message_id: el('rrMessage').value.trim(), emoji: el('rrEmoji').value.trim(), role_id: el('rrRole').value.trim()
            };
            post('/api/reaction_roles/add', form).then(r => {
                if (r.success) ['rrGuild', 'rrChannel', 'rrMessage', 'rrEmoji', 'rrRole'].forEach(id => el(id).value = '');
            });
        };
        const sendFilter = () => post('/api/logs/filter', { level: el('logLevel').value, text: el('logText').value });
        el('logLevel').onchange = sendFilter;
        el('logText').oninput = sendFilter;
        el('logClear').onclick = () => post('/api/logs/clear');
        el('logDownload').onclick = () => { window.location = '/api/logs/download'; };
        el('simSend').onclick = () => post('/api/simulate_log', { level: el('simLevel').value, message: el('simMessage').value });

        showTab(activeTab);
        fetch('/api/state').then(r => r.json()).then(render).catch(err => console.error('Failed to fetch state:', err));
        connect();
    </script>
</body>
</html>
`
