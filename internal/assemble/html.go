// Package assemble renders a validated report into its two deliverable
// forms: a self-contained interactive HTML document and a static PDF. Both
// carry the same factual content; only the dynamic surfaces differ.
package assemble

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/report"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/sim"
)

type htmlData struct {
	Code     string
	Report   *report.Model
	Controls []sim.Param

	// Raw JSON injected into the document script. Marshaled from validated
	// data, so safe to embed.
	ReportJSON   template.JS
	ControlsJSON template.JS
}

// InteractiveHTML renders the report as one standalone HTML file: every
// interactive behavior (editable table, live chart, calculator, simulation)
// is carried inside the document itself so it keeps working offline.
func InteractiveHTML(m *report.Model, code string) (string, error) {
	reportJSON, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	controls := sim.ForType(m.SimulationType).Params()
	controlsJSON, err := json.Marshal(controls)
	if err != nil {
		return "", fmt.Errorf("marshal controls: %w", err)
	}

	var buf bytes.Buffer
	err = interactiveTmpl.Execute(&buf, htmlData{
		Code:         code,
		Report:       m,
		Controls:     controls,
		ReportJSON:   template.JS(reportJSON),
		ControlsJSON: template.JS(controlsJSON),
	})
	if err != nil {
		return "", fmt.Errorf("render interactive document: %w", err)
	}
	return buf.String(), nil
}

var interactiveTmpl = template.Must(template.New("interactive").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Code}} - Galvaniy Labs Report</title>
    <script src="https://cdn.tailwindcss.com"></script>
    <script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
    <link href="https://fonts.googleapis.com/css2?family=Inter:wght@300;400;600;700&display=swap" rel="stylesheet">
    <style>
        body { font-family: 'Inter', sans-serif; background-color: #0f172a; color: #f8fafc; overflow-x: hidden; }
        .glass {
            background: rgba(30, 41, 59, 0.7);
            backdrop-filter: blur(12px);
            border: 1px solid rgba(255, 255, 255, 0.1);
            box-shadow: 0 4px 30px rgba(0, 0, 0, 0.1);
        }
        .input-glass {
            background: rgba(0, 0, 0, 0.3);
            border: 1px solid rgba(255, 255, 255, 0.1);
            color: white;
        }
        .input-glass:focus { outline: 2px solid #3b82f6; }

        input[type=range] {
            -webkit-appearance: none;
            width: 100%;
            background: transparent;
        }
        input[type=range]::-webkit-slider-thumb {
            -webkit-appearance: none;
            height: 16px;
            width: 16px;
            border-radius: 50%;
            background: #38bdf8;
            cursor: pointer;
            margin-top: -6px;
            box-shadow: 0 0 10px rgba(56, 189, 248, 0.5);
        }
        input[type=range]::-webkit-slider-runnable-track {
            width: 100%;
            height: 4px;
            cursor: pointer;
            background: rgba(255,255,255,0.2);
            border-radius: 2px;
        }

        input[type=number]::-webkit-inner-spin-button,
        input[type=number]::-webkit-outer-spin-button {
            -webkit-appearance: none;
            margin: 0;
        }
        input[type=number] {
            -moz-appearance: textfield;
        }

        ::-webkit-scrollbar { width: 8px; }
        ::-webkit-scrollbar-track { background: #0f172a; }
        ::-webkit-scrollbar-thumb { background: #334155; border-radius: 4px; }
        canvas { max-width: 100%; }

        #splash-screen {
            position: fixed;
            inset: 0;
            background: #0f172a;
            z-index: 100;
            display: flex;
            flex-direction: column;
            align-items: center;
            justify-content: center;
            transition: opacity 0.8s ease-out;
        }
        .atom-spinner {
            width: 60px;
            height: 60px;
            border-radius: 50%;
            border: 4px solid rgba(56, 189, 248, 0.3);
            border-top-color: #38bdf8;
            animation: spin 1s linear infinite;
        }
        @keyframes spin {
            to { transform: rotate(360deg); }
        }
    </style>
</head>
<body class="min-h-screen p-4 md:p-8">

    <div id="splash-screen">
        <div class="atom-spinner mb-6"></div>
        <h1 class="text-4xl font-bold text-white tracking-tight">Galvaniy <span class="text-sky-400">Labs</span></h1>
        <p class="text-slate-400 text-sm mt-2 uppercase tracking-widest">Your Smart Lab Companion</p>
    </div>

    <div class="max-w-5xl mx-auto space-y-8 opacity-0 transition-opacity duration-1000 delay-500" id="main-content">
        <header class="glass rounded-2xl p-8 text-center relative overflow-hidden">
            <div class="absolute inset-0 bg-blue-500/10 blur-3xl"></div>
            <h1 class="text-4xl font-bold text-transparent bg-clip-text bg-gradient-to-r from-blue-400 to-cyan-300 relative z-10">{{.Report.Title}}</h1>
            <p class="text-slate-400 mt-2 relative z-10">Experiment Code: <span class="text-white font-mono">{{.Code}}</span></p>
        </header>

        <div class="grid grid-cols-1 md:grid-cols-2 gap-8">
            <section class="glass rounded-2xl p-6 space-y-4">
                <h2 class="text-xl font-semibold text-blue-400 border-b border-white/10 pb-2">Objectives</h2>
                <ul class="list-disc list-inside text-slate-300 space-y-1">
                    {{range .Report.Objectives}}<li>{{.}}</li>{{end}}
                </ul>

                <h2 class="text-xl font-semibold text-blue-400 border-b border-white/10 pb-2 pt-4">Theory</h2>
                <p class="text-slate-300 text-sm leading-relaxed">{{.Report.Theory}}</p>
            </section>

            <section class="glass rounded-2xl p-6 space-y-4">
                <h2 class="text-xl font-semibold text-purple-400 border-b border-white/10 pb-2">Apparatus</h2>
                <div class="flex flex-wrap gap-2">
                    {{range .Report.Apparatus}}<span class="bg-white/5 px-3 py-1 rounded-full text-xs text-slate-300">{{.}}</span>{{end}}
                </div>

                <h2 class="text-xl font-semibold text-purple-400 border-b border-white/10 pb-2 pt-4">Procedure</h2>
                <ol class="list-decimal list-inside text-slate-300 space-y-2 text-sm">
                    {{range .Report.Procedure}}<li>{{.}}</li>{{end}}
                </ol>
            </section>
        </div>

        <section class="glass rounded-2xl p-6 overflow-hidden">
            <div class="flex justify-between items-center mb-6">
                <h2 class="text-xl font-semibold text-emerald-400 flex items-center gap-2">Virtual Apparatus</h2>
                <button onclick="simulation.toggle()" id="simBtn" class="bg-emerald-500/20 text-emerald-300 hover:bg-emerald-500/30 px-4 py-2 rounded-lg transition text-sm font-bold border border-emerald-500/30">Start Simulation</button>
            </div>

            <div class="grid grid-cols-1 lg:grid-cols-3 gap-6">
                <div class="lg:col-span-2 relative bg-black/40 rounded-xl overflow-hidden border border-white/5 h-[300px] flex items-center justify-center">
                    <canvas id="simCanvas" width="800" height="300"></canvas>
                    <div id="simOverlay" class="absolute inset-0 flex items-center justify-center pointer-events-none">
                        <p class="text-white/20 font-bold text-4xl uppercase tracking-widest">Simulation Paused</p>
                    </div>
                </div>

                <div class="space-y-4 p-4 bg-white/5 rounded-xl border border-white/5">
                    <h3 class="text-sm font-bold text-slate-400 uppercase tracking-wider mb-2">Controls</h3>
                    <div id="simControls" class="space-y-4">
                        {{range .Controls}}
                            <div>
                                <div class="flex justify-between text-xs text-slate-300 mb-1">
                                    <label for="ctrl-{{.ID}}">{{.Label}}</label>
                                    <span id="val-{{.ID}}">{{.Initial}} {{.Unit}}</span>
                                </div>
                                <input
                                    type="range"
                                    id="ctrl-{{.ID}}"
                                    min="{{.Min}}"
                                    max="{{.Max}}"
                                    value="{{.Initial}}"
                                    oninput="updateSimParam('{{.ID}}', this.value, '{{.Unit}}')"
                                >
                            </div>
                        {{end}}
                    </div>
                </div>
            </div>
            <p class="text-xs text-slate-500 mt-2 text-center">Adjust parameters to see real-time physics updates.</p>
        </section>

        <div class="grid grid-cols-1 lg:grid-cols-2 gap-8">

            <section class="glass rounded-2xl p-6">
                <div class="flex justify-between items-center mb-4">
                    <h2 class="text-xl font-semibold text-orange-400">Observation Table</h2>
                    <span class="text-xs bg-orange-500/10 text-orange-300 px-2 py-1 rounded">Editable</span>
                </div>
                <div class="overflow-x-auto">
                    <table class="w-full text-sm text-left">
                        <thead class="text-xs text-slate-400 uppercase bg-white/5">
                            <tr>
                                {{range .Report.TableHeaders}}<th class="px-4 py-3">{{.}}</th>{{end}}
                            </tr>
                        </thead>
                        <tbody id="dataTableBody">
                        </tbody>
                    </table>
                </div>
                <button onclick="addRow()" class="mt-4 w-full py-2 bg-white/5 hover:bg-white/10 rounded-lg text-slate-400 text-xs font-bold transition dashed border border-white/10">+ Add Row</button>
            </section>

            {{if .Report.GraphConfig}}
            <section class="glass rounded-2xl p-6">
                <h2 class="text-xl font-semibold text-pink-400 mb-4">Live Analysis Graph</h2>
                <div class="relative h-[300px] w-full">
                    <canvas id="dataChart"></canvas>
                </div>
            </section>
            {{end}}
        </div>

        <section class="glass rounded-2xl p-6 border-l-4 border-cyan-500">
            <h2 class="text-xl font-semibold text-cyan-400 mb-4">Data Analysis</h2>
            <div id="analysisContent" class="prose prose-invert max-w-none text-slate-300">
                Loading analysis...
            </div>
        </section>

        {{if .Report.Questions}}
        <section class="glass rounded-2xl p-6 border-l-4 border-yellow-500">
            <h2 class="text-xl font-semibold text-yellow-400 mb-4">Questions &amp; Answers</h2>
            <div class="space-y-4">
                {{range $i, $q := .Report.Questions}}
                    <div class="bg-white/5 p-4 rounded-xl">
                        <p class="font-bold text-slate-200 text-sm mb-1">Q{{inc $i}}: {{$q.Question}}</p>
                        <p class="text-slate-400 text-sm pl-4 border-l border-white/20">{{$q.Answer}}</p>
                    </div>
                {{end}}
            </div>
        </section>
        {{end}}

        <section class="glass rounded-2xl p-6">
            <h2 class="text-xl font-semibold text-slate-200 mb-2">Conclusion</h2>
            <p class="text-slate-400">{{.Report.Conclusion}}</p>
        </section>

        <footer class="text-center text-slate-600 text-sm py-8">
            Generated by Galvaniy Labs - Your Smart Lab Companion
        </footer>
    </div>

    <script>
        // --- APP STATE ---
        const reportData = {{.ReportJSON}};
        const simControls = {{.ControlsJSON}};
        let chartInstance = null;

        const initialParams = {};
        simControls.forEach(c => initialParams[c.id] = c.initial);

        // --- DOM ELEMENTS ---
        const tableBody = document.getElementById('dataTableBody');
        const analysisDiv = document.getElementById('analysisContent');
        const simCanvas = document.getElementById('simCanvas');
        const simCtx = simCanvas.getContext('2d');

        // --- INITIALIZATION ---
        function init() {
            renderTable();
            if (reportData.graphConfig) {
                initChart();
            }
            updateAnalysis();
            simulation.init();

            setTimeout(() => {
                const splash = document.getElementById('splash-screen');
                const main = document.getElementById('main-content');
                if (splash && main) {
                    splash.style.opacity = '0';
                    main.style.opacity = '1';
                    setTimeout(() => splash.remove(), 800);
                }
            }, 2000);
        }

        // --- TABLE LOGIC ---
        function renderTable() {
            tableBody.innerHTML = '';
            reportData.tableData.forEach((row, rIndex) => {
                const tr = document.createElement('tr');
                tr.className = "border-b border-white/5 hover:bg-white/5 transition";
                row.forEach((cell, cIndex) => {
                    const td = document.createElement('td');
                    td.className = "p-1";

                    const input = document.createElement('input');
                    input.type = "number";
                    input.step = "any";
                    input.value = cell;
                    input.className = "w-full bg-transparent p-2 text-right font-mono text-sm border rounded outline-none transition-colors border-white/10 focus:bg-white/5";

                    input.oninput = (e) => {
                        const val = e.target.value;
                        if (val === '' || isNaN(parseFloat(val))) {
                            input.classList.add('border-red-500/50', 'text-red-300');
                            input.classList.remove('border-green-500/50', 'text-green-300', 'border-white/10');
                        } else {
                            input.classList.add('border-green-500/50', 'text-green-300');
                            input.classList.remove('border-red-500/50', 'text-red-300', 'border-white/10');
                        }
                    };

                    input.onchange = (e) => updateData(rIndex, cIndex, e.target.value);

                    td.appendChild(input);
                    tr.appendChild(td);
                });
                tableBody.appendChild(tr);
            });
        }

        function updateData(row, col, value) {
            reportData.tableData[row][col] = parseFloat(value) || 0;
            if (reportData.graphConfig) {
                updateChart();
            }
            updateAnalysis();
        }

        function addRow() {
            const newRow = new Array(reportData.tableHeaders.length).fill(0);
            reportData.tableData.push(newRow);
            renderTable();
            if (reportData.graphConfig) {
                updateChart();
            }
            updateAnalysis();
        }

        // --- CHART LOGIC ---
        function initChart() {
            const ctxElem = document.getElementById('dataChart');
            if (!ctxElem) return;

            const ctx = ctxElem.getContext('2d');
            const config = reportData.graphConfig;

            chartInstance = new Chart(ctx, {
                type: 'scatter',
                data: {
                    datasets: [{
                        label: config.title,
                        data: getChartData(),
                        backgroundColor: '#f472b6',
                        borderColor: '#f472b6',
                        showLine: true,
                        tension: 0.1
                    }]
                },
                options: {
                    responsive: true,
                    maintainAspectRatio: false,
                    scales: {
                        x: {
                            title: { display: true, text: config.xLabel, color: '#94a3b8' },
                            grid: { color: 'rgba(255,255,255,0.1)' },
                            ticks: { color: '#cbd5e1' }
                        },
                        y: {
                            title: { display: true, text: config.yLabel, color: '#94a3b8' },
                            grid: { color: 'rgba(255,255,255,0.1)' },
                            ticks: { color: '#cbd5e1' }
                        }
                    },
                    plugins: {
                        legend: { labels: { color: '#cbd5e1' } }
                    }
                }
            });
        }

        function getChartData() {
            if (!reportData.graphConfig) return [];
            const xIdx = reportData.graphConfig.xColumnIndex;
            const yIdx = reportData.graphConfig.yColumnIndex;
            return reportData.tableData.map(row => ({ x: row[xIdx], y: row[yIdx] }));
        }

        function updateChart() {
            if (chartInstance) {
                chartInstance.data.datasets[0].data = getChartData();
                chartInstance.update();
            }
        }

        // --- DYNAMIC ANALYSIS ---
        function updateAnalysis() {
            try {
                const calcFunc = new Function('rows', reportData.calculationScript);
                const results = calcFunc(reportData.tableData);

                let template = reportData.analysisTemplate;

                for (const [key, value] of Object.entries(results)) {
                    const regex = new RegExp('\\{\\{' + key + '\\}\\}', 'g');
                    const valStr = typeof value === 'number' ? value.toFixed(4) : value;
                    template = template.replace(regex, '<span class="text-cyan-300 font-bold">' + valStr + '</span>');
                }

                analysisDiv.innerHTML = template.replace(/\n/g, '<br>');
            } catch (e) {
                console.error("Analysis Error", e);
                analysisDiv.innerHTML = "<span class='text-red-400'>Error calculating analysis data. Check table inputs.</span>";
            }
        }

        // --- SIMULATION PARAMETERS UPDATE ---
        function updateSimParam(id, value, unit) {
            document.getElementById('val-' + id).innerText = value + ' ' + unit;
            simulation.params[id] = parseFloat(value);
        }

        // --- SIMULATION ENGINE ---
        const simulation = {
            active: false,
            frame: 0,
            type: reportData.simulationType || 'general',
            params: initialParams,

            toggle: function() {
                this.active = !this.active;
                document.getElementById('simOverlay').style.opacity = this.active ? 0 : 1;
                document.getElementById('simBtn').innerText = this.active ? "Pause" : "Resume";
                if (this.active) this.loop();
            },

            init: function() {
                this.draw();
            },

            loop: function() {
                if (!this.active) return;
                this.frame++;
                this.draw();
                requestAnimationFrame(() => this.loop());
            },

            draw: function() {
                simCtx.clearRect(0, 0, 800, 300);
                simCtx.save();

                simCtx.fillStyle = '#1e293b';
                simCtx.fillRect(0, 0, 800, 300);

                switch (this.type) {
                    case 'pendulum': this.drawPendulum(); break;
                    case 'heating': this.drawHeating(); break;
                    case 'spring': this.drawSpring(); break;
                    case 'circuit': this.drawCircuit(); break;
                    case 'wave': this.drawWave(); break;
                    default: this.drawGeneral();
                }

                simCtx.restore();
            },

            drawPendulum: function() {
                const cx = 400, cy = 0;
                const len = this.params.length || 200;
                const g = this.params.gravity || 9.8;

                // T = 2pi sqrt(L/g) -> angular speed scales with sqrt(g/L)
                const speedFactor = Math.sqrt(g) / Math.sqrt(len) * 2;

                const angle = Math.sin(this.frame * 0.05 * speedFactor) * 0.5;
                const x = cx + Math.sin(angle) * len;
                const y = cy + Math.cos(angle) * len;

                simCtx.strokeStyle = '#94a3b8';
                simCtx.lineWidth = 2;
                simCtx.beginPath();
                simCtx.moveTo(cx, cy);
                simCtx.lineTo(x, y);
                simCtx.stroke();

                simCtx.fillStyle = '#38bdf8';
                simCtx.beginPath();
                simCtx.arc(x, y, 15, 0, Math.PI * 2);
                simCtx.fill();

                simCtx.fillStyle = '#fff';
                simCtx.font = "12px monospace";
                simCtx.fillText('L: ' + len + 'cm, g: ' + g + 'm/s²', 10, 290);
            },

            drawHeating: function() {
                simCtx.fillStyle = 'rgba(255,255,255,0.1)';
                simCtx.strokeStyle = '#fff';
                simCtx.fillRect(350, 150, 100, 120);
                simCtx.strokeRect(350, 150, 100, 120);

                simCtx.fillStyle = 'rgba(6, 182, 212, 0.5)';
                simCtx.fillRect(355, 180, 90, 85);

                const heatLevel = this.params.heat || 50;

                if (this.active) {
                    simCtx.fillStyle = 'rgba(255,255,255,0.6)';
                    const bubbleCount = Math.floor(heatLevel / 10) + 1;

                    for (let i = 0; i < bubbleCount; i++) {
                        const bx = 360 + ((this.frame * (i + 1) * 10 + i * 20) % 80);
                        const speed = 1 + (heatLevel / 20);
                        const by = 260 - ((this.frame * speed + i * 30) % 80);

                        simCtx.beginPath();
                        simCtx.arc(bx, by, 2 + (heatLevel / 30), 0, Math.PI * 2);
                        simCtx.fill();
                    }
                }

                if (this.active && heatLevel > 0) {
                    const flameHeight = heatLevel / 2;
                    simCtx.fillStyle = '#f59e0b';
                    simCtx.beginPath();
                    simCtx.moveTo(380, 300);
                    simCtx.lineTo(400, 300 - flameHeight - Math.abs(Math.sin(this.frame * 0.7)) * 5);
                    simCtx.lineTo(420, 300);
                    simCtx.fill();
                }

                const temp = Math.min(100, (this.params.ambient || 25) + (this.frame * 0.1 * (heatLevel / 50)));
                simCtx.fillStyle = '#fff';
                simCtx.fillText('Temp: ' + temp.toFixed(1) + '°C', 10, 290);
            },

            drawSpring: function() {
                const mass = this.params.mass || 50;
                const k = this.params.k || 5;

                // Extension x = mg/k
                const extension = (mass * 9.8) / k;
                const yBase = 50 + (extension * 2);

                // omega = sqrt(k/m), mass in grams roughly scaled
                const omega = Math.sqrt(k / (mass / 100));
                const oscillation = Math.sin(this.frame * 0.05 * omega) * 20;

                const y = yBase + (this.active ? oscillation : 0);

                simCtx.strokeStyle = '#cbd5e1';
                simCtx.lineWidth = 4;
                simCtx.beginPath();
                simCtx.moveTo(400, 0);

                const coils = 10;
                const coilSpacing = y / coils;

                for (let i = 0; i <= coils; i++) {
                    const cx = 400 + (i % 2 === 0 ? 10 : -10);
                    const cy = i * coilSpacing;
                    simCtx.lineTo(cx, cy);
                }
                simCtx.stroke();

                const size = 20 + (mass / 5);
                simCtx.fillStyle = '#f472b6';
                simCtx.fillRect(400 - size / 2, y, size, size);

                simCtx.fillStyle = '#fff';
                simCtx.fillText('Ext: ' + extension.toFixed(1) + 'mm', 10, 290);
            },

            drawCircuit: function() {
                const volt = this.params.voltage || 12;
                const res = this.params.resistance || 100;

                // I = V/R
                const current = volt / res;
                const speed = current * 20;

                simCtx.strokeStyle = '#facc15';
                simCtx.lineWidth = 4;
                simCtx.strokeRect(250, 100, 300, 150);

                simCtx.fillStyle = '#ef4444';
                simCtx.fillRect(230, 160, 10, 30);
                simCtx.fillStyle = '#22c55e';
                simCtx.fillRect(260, 150, 10, 50);

                simCtx.fillStyle = '#94a3b8';
                simCtx.fillRect(540, 160, 20, 30);

                if (this.active && speed > 0.1) {
                    const pathLen = 900; // perimeter
                    const pos = (this.frame * speed) % pathLen;

                    let ex = 250, ey = 100;
                    if (pos < 300) { ex = 250 + pos; ey = 100; }
                    else if (pos < 450) { ex = 550; ey = 100 + (pos - 300); }
                    else if (pos < 750) { ex = 550 - (pos - 450); ey = 250; }
                    else { ex = 250; ey = 250 - (pos - 750); }

                    simCtx.fillStyle = '#38bdf8';
                    simCtx.beginPath();
                    simCtx.arc(ex, ey, 6, 0, Math.PI * 2);
                    simCtx.fill();
                }

                simCtx.fillStyle = '#fff';
                simCtx.fillText('I = ' + current.toFixed(3) + ' A', 10, 290);
            },

            drawWave: function() {
                const freq = this.params.frequency || 5;
                const amp = this.params.amplitude || 50;

                simCtx.strokeStyle = '#818cf8';
                simCtx.lineWidth = 3;
                simCtx.beginPath();
                for (let x = 0; x < 800; x += 5) {
                    // y = A sin(kx - wt)
                    const y = 150 + Math.sin((x * 0.01 * freq) + (this.frame * 0.05 * freq)) * amp;
                    if (x === 0) simCtx.moveTo(x, y);
                    else simCtx.lineTo(x, y);
                }
                simCtx.stroke();
            },

            drawGeneral: function() {
                const speed = this.params.speed || 1;

                simCtx.fillStyle = '#fff';
                simCtx.font = "20px Inter";
                simCtx.fillText("Standard Laboratory Environment", 280, 150);

                simCtx.fillStyle = 'rgba(255,255,255,0.2)';
                for (let i = 0; i < 10; i++) {
                    const x = (this.frame * speed * (i + 1)) % 800;
                    const y = (Math.sin(this.frame * 0.01 * speed + i) * 100) + 150;
                    simCtx.beginPath();
                    simCtx.arc(x, y, 2 + i % 3, 0, Math.PI * 2);
                    simCtx.fill();
                }
            }
        };

        // Start
        init();
    </script>
</body>
</html>`))
